// Package chunkid assigns vector record ids to chunks.
//
// Two schemes exist. "sequential" numbers chunks across one ingestion run
// (chunk_0, chunk_1, ...); re-running over a changed corpus can leave stale
// records behind. "content" derives a UUIDv5 from the chunk's source, position
// and text, so re-ingesting identical content overwrites the same records.
package chunkid

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

const (
	SchemeSequential = "sequential"
	SchemeContent    = "content"

	sequentialPrefix = "chunk_"
)

// Func returns the id for the chunk at run position seq.
type Func func(seq int, source string, index int, text string) string

// ForScheme returns the id function for a configured scheme name.
func ForScheme(scheme string) (Func, error) {
	switch scheme {
	case SchemeSequential, "":
		return func(seq int, _ string, _ int, _ string) string { return Sequential(seq) }, nil
	case SchemeContent:
		return func(_ int, source string, index int, text string) string { return Content(source, index, text) }, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", scheme)
	}
}

// Sequential returns "chunk_<seq>".
func Sequential(seq int) string {
	return sequentialPrefix + strconv.Itoa(seq)
}

// Content returns a stable id for a chunk. Same source, index and text always yield the same id.
func Content(source string, index int, text string) string {
	normalized := filepath.ToSlash(filepath.Clean(source))
	name := normalized + "\x00" + strconv.Itoa(index) + "\x00" + text
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
