package indexer

import "strings"

// Preprocess normalizes line endings and trims outer whitespace before chunking.
// Inner whitespace is kept so paragraph and line boundaries survive.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
