package models

import (
	"strings"
	"testing"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *ChatRequest
		max     int
		wantErr bool
	}{
		{"empty message", &ChatRequest{Message: ""}, 10, true},
		{"whitespace only", &ChatRequest{Message: "  \n\t "}, 10, true},
		{"valid message", &ChatRequest{Message: "hello"}, 10, false},
		{"exactly at cap", &ChatRequest{Message: strings.Repeat("a", 10)}, 10, false},
		{"over cap", &ChatRequest{Message: strings.Repeat("a", 11)}, 10, true},
		{"cap counts characters not bytes", &ChatRequest{Message: strings.Repeat("é", 10)}, 10, false},
		{"no cap", &ChatRequest{Message: strings.Repeat("a", 5000)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.req.SessionID != "guest" {
				t.Errorf("session id should default to guest, got %q", tt.req.SessionID)
			}
		})
	}
}

func TestChatRequest_ValidateTrims(t *testing.T) {
	r := &ChatRequest{Message: "  hi there \n", SessionID: "abc"}
	if err := r.Validate(100); err != nil {
		t.Fatal(err)
	}
	if r.Message != "hi there" {
		t.Errorf("message not trimmed: %q", r.Message)
	}
	if r.SessionID != "abc" {
		t.Errorf("session id overwritten: %q", r.SessionID)
	}
}

func TestTTSRequest_Validate(t *testing.T) {
	if err := (&TTSRequest{Text: " "}).Validate(10); err == nil {
		t.Error("expected error for blank text")
	}
	if err := (&TTSRequest{Text: "Hello"}).Validate(10); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&TTSRequest{Text: "Hello world!"}).Validate(5); err == nil {
		t.Error("expected error for text over cap")
	}
}

func TestNewVectorRecord(t *testing.T) {
	c := Chunk{ID: "chunk_0", Source: "data/resume.txt", Index: 0, Text: "Lead Data Scientist"}
	rec := NewVectorRecord(c, []float32{1, 0})
	if rec.ID != "chunk_0" || rec.Metadata.Text != c.Text || rec.Metadata.Source != c.Source {
		t.Errorf("unexpected record: %+v", rec)
	}
	if len(rec.Values) != 2 {
		t.Errorf("values: got %v", rec.Values)
	}
}
