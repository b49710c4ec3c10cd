package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/portfolio-agent/internal/models"
)

func sampleMatches() []models.Match {
	return []models.Match{
		{
			Score: 0.91,
			Record: models.VectorRecord{
				ID:       "chunk_3",
				Metadata: models.RecordMetadata{Text: "Led a team of six data scientists.", Source: "resume.txt"},
			},
		},
	}
}

func TestWriteMatches_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatches(&buf, "leadership", sampleMatches(), 42*time.Millisecond, nil, OutputJSON); err != nil {
		t.Fatalf("WriteMatches(json): %v", err)
	}
	var decoded SearchOutput
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "leadership" || decoded.QueryTime != 42 {
		t.Errorf("decoded query=%q query_time=%d", decoded.Query, decoded.QueryTime)
	}
	if len(decoded.Matches) != 1 || decoded.Matches[0].Record.ID != "chunk_3" {
		t.Errorf("decoded matches: %+v", decoded.Matches)
	}
	if decoded.Error != "" {
		t.Errorf("unexpected error field: %q", decoded.Error)
	}
}

func TestWriteMatches_JSONDegraded(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatches(&buf, "q", nil, 0, errors.New("index unavailable"), OutputJSON); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"matches": []`) {
		t.Errorf("empty matches should encode as []: %s", out)
	}
	if !strings.Contains(out, "index unavailable") {
		t.Errorf("error not reported: %s", out)
	}
}

func TestWriteMatches_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMatches(&buf, "leadership", sampleMatches(), time.Millisecond, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 matches", "chunk_3", "resume.txt", "Led a team"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport(t *testing.T) {
	report := models.IngestReport{Documents: 2, Chunks: 7, Embedded: 6, Skipped: 1, Batches: 1}
	var buf bytes.Buffer
	if err := WriteReport(&buf, report, time.Second, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingested 2 documents into 7 chunks") {
		t.Errorf("unexpected text report:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteReport(&buf, report, time.Second, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.IngestReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != report {
		t.Errorf("decoded = %+v, want %+v", decoded, report)
	}
}

func TestParseOutputFormat(t *testing.T) {
	if f, err := ParseOutputFormat("JSON"); err != nil || f != OutputJSON {
		t.Errorf("ParseOutputFormat(JSON) = %q, %v", f, err)
	}
	if f, err := ParseOutputFormat(""); err != nil || f != OutputText {
		t.Errorf("ParseOutputFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}
