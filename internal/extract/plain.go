package extract

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrBinaryContent is returned for "text" files that contain NUL bytes.
var ErrBinaryContent = errors.New("binary content")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlain returns content as a string without a leading byte order mark.
// Invalid UTF-8 sequences are replaced with the replacement character.
func extractPlain(content []byte) (string, error) {
	if bytes.IndexByte(content, 0) >= 0 {
		return "", ErrBinaryContent
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
