// Package models defines core data structures for documents, chunks, vector records and API payloads.
package models

// Document is raw source text plus the file it came from. Documents are discarded after chunking.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Chunk is a bounded window of a Document's text, the unit of embedding and retrieval.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Index  int    `json:"index"` // position inside the source document
	Text   string `json:"text"`
}

// RecordMetadata is stored alongside every vector.
type RecordMetadata struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// VectorRecord is one stored vector. Re-upserting the same ID overwrites it.
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata RecordMetadata `json:"metadata"`
}

// NewVectorRecord builds the record stored for chunk c.
func NewVectorRecord(c Chunk, values []float32) VectorRecord {
	return VectorRecord{
		ID:     c.ID,
		Values: values,
		Metadata: RecordMetadata{
			Text:   c.Text,
			Source: c.Source,
		},
	}
}
