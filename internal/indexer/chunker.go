// Package indexer provides document chunking and the ingestion pipeline.
package indexer

import (
	"github.com/hyperjump/portfolio-agent/internal/models"
)

// separators are tried in order when choosing where a chunk ends.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune(" "),
}

// Chunker splits text into overlapping rune windows.
//
// Every chunk is at most chunkSize runes, and each chunk after the first
// starts exactly chunkOverlap runes before the previous one ended.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in runes).
// The overlap is clamped to [0, chunkSize-1].
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split chunks every document, preserving document order.
func (c *Chunker) Split(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Chunk(doc)...)
	}
	return chunks
}

// Chunk splits one document. Chunk IDs are left empty for the caller to assign.
func (c *Chunker) Chunk(doc models.Document) []models.Chunk {
	runes := []rune(Preprocess(doc.Text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []models.Chunk
	start := 0
	for {
		end := len(runes)
		if end-start > c.chunkSize {
			end = c.cutPoint(runes, start)
		}
		chunks = append(chunks, models.Chunk{
			Source: doc.Source,
			Index:  len(chunks),
			Text:   string(runes[start:end]),
		})
		if end == len(runes) {
			return chunks
		}
		start = end - c.chunkOverlap
	}
}

// cutPoint returns the end of the window starting at start. The result is
// always in (start+chunkOverlap, start+chunkSize] so the next window advances.
func (c *Chunker) cutPoint(runes []rune, start int) int {
	limit := start + c.chunkSize
	lo := start + c.chunkSize/2
	if lo <= start+c.chunkOverlap {
		lo = start + c.chunkOverlap + 1
	}
	for _, sep := range separators {
		// Latest cut (the rune after the separator) in [lo, limit].
		for cut := limit; cut >= lo; cut-- {
			if cut-len(sep) >= start && hasSeparatorAt(runes, cut-len(sep), sep) {
				return cut
			}
		}
	}
	return limit
}

func hasSeparatorAt(runes []rune, i int, sep []rune) bool {
	if i < 0 || i+len(sep) > len(runes) {
		return false
	}
	for j, r := range sep {
		if runes[i+j] != r {
			return false
		}
	}
	return true
}
