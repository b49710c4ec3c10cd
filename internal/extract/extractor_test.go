package extract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("Lead Data Scientist\nAbu Dhabi"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Lead Data Scientist\nAbu Dhabi" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_markdownUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("caf\xc3\xa9"), ".MD")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello\x80world"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hello�world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Project")
	f.SetCellValue("Sheet1", "A2", "Churn model")
	f.SetCellValue("Sheet1", "B2", "2023")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Project\nChurn model | 2023" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_excelMultipleSheets(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Python")
	f.SetCellValue("Sheet1", "B1", "")
	f.SetCellValue("Sheet1", "A3", "SQL")
	if _, err := f.NewSheet("Projects"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Projects", "A1", "Churn model")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "## Sheet1\nPython\nSQL\n\n## Projects\nChurn model"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_plainStripsBOM(t *testing.T) {
	got, err := NewExtractor().ExtractBytes([]byte("\xef\xbb\xbfResume"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Resume" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainRejectsBinary(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte("PK\x03\x04\x00\x00"), ".md")
	if !errors.Is(err, ErrBinaryContent) {
		t.Errorf("expected ErrBinaryContent, got %v", err)
	}
}

func TestExtractBytes_unknownExtensionIsPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("raw content"), ".xyz")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "raw content" {
		t.Errorf("got %q", got)
	}
}

func TestPDFText_malformedInput(t *testing.T) {
	e := NewExtractor()
	inputs := [][]byte{
		nil,
		[]byte("not a pdf at all"),
		[]byte("%PDF-1.4\n%%EOF"),
	}
	for _, in := range inputs {
		if _, err := e.PDFText(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestPDFText_emptyIsMalformed(t *testing.T) {
	_, err := NewExtractor().PDFText(nil)
	if !errors.Is(err, ErrMalformedPDF) {
		t.Errorf("expected ErrMalformedPDF, got %v", err)
	}
}

func TestExtract_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "about.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Python")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Python" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}
