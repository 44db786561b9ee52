// Package textio reads source files with an ordered encoding fallback.
package textio

import (
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbacks are tried in order when content is not valid UTF-8. Latin-1
// accepts every byte sequence, so Windows-1252 is effectively a tail guard.
var fallbacks = []encoding.Encoding{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// ReadFile reads a file and decodes its content to UTF-8, trying each
// fallback encoding in order. Returns an error only when the file itself
// cannot be read or no encoding accepts the content.
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(raw)
}

// Decode converts raw bytes to UTF-8 using the fallback ladder.
func Decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}

	for _, enc := range fallbacks {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("no supported encoding accepts content")
}
