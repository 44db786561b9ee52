// Package frontend bundles per-language file classification, declaration
// extraction, and usage matching behind a single capability set. The scan
// pipeline is written purely against the FrontEnd interface; adding a
// language adds a variant without touching pipeline logic.
package frontend

import (
	"errors"
	"fmt"
	"strings"

	"exhume/pkg/config"
)

// Language selects a front end variant.
type Language string

const (
	LangPHP    Language = "php"
	LangPython Language = "python"
)

// ParseLanguage converts a string to a Language.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "php":
		return LangPHP, nil
	case "python", "py":
		return LangPython, nil
	default:
		return "", fmt.Errorf("unsupported language %q (supported: php, python)", s)
	}
}

// ErrInvalidRoot indicates the scan root does not exist or is not a directory.
var ErrInvalidRoot = errors.New("invalid root directory")

// MalformedSourceError indicates a file whose content could not be
// structurally parsed. The file contributes nothing; the scan continues.
type MalformedSourceError struct {
	Path string
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source: %s", e.Path)
}

// FrontEnd is the language-specific capability set.
type FrontEnd interface {
	// Language returns the variant's language.
	Language() Language

	// ClassifyFiles partitions files under root into analysis files and
	// test files. The two sequences are disjoint and deterministic for a
	// fixed filesystem snapshot.
	ClassifyFiles(root string) (analysis, tests []string, err error)

	// ExtractElements returns the elements declared in one file's content,
	// in declaration order, deduplicated first-wins by qualified name.
	ExtractElements(content []byte, path string) ([]*CodeElement, error)

	// MatchUsage reports whether content references the element. Pure and
	// stateless; safe to call concurrently. path identifies the scanned
	// file so cross-file import evidence applies only outside the
	// declaring file.
	MatchUsage(content []byte, path string, el *CodeElement) bool
}

// New returns the front end for a language.
func New(lang Language, cfg *config.Config) (FrontEnd, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	switch lang {
	case LangPHP:
		return NewPHP(cfg), nil
	case LangPython:
		return NewPython(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}
