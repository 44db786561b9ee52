package frontend

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Kind classifies a declared element and selects its usage-pattern set.
type Kind int

const (
	KindFunction Kind = iota
	KindMethod
	KindProperty
	KindStaticAttribute
)

// String returns a stable lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMethod:
		return "method"
	case KindProperty:
		return "property"
	case KindStaticAttribute:
		return "static_attribute"
	default:
		return "unknown"
	}
}

// CodeElement is one declared unit of code. Elements are created during
// extraction of their declaring file and are immutable afterwards.
type CodeElement struct {
	// QualifiedName is the unique hierarchical key, e.g. "orders::Order::total"
	// for Python or "Order::total" for PHP.
	QualifiedName string

	// BaseName is the unqualified declared name used for text matching.
	BaseName string

	// Scope is the nearest enclosing type name, empty for free functions.
	Scope string

	Kind Kind

	// DeclaredLines is the structural line span of the declaration body.
	DeclaredLines int

	// DeclaredIn is the path of the declaring file.
	DeclaredIn string

	// FalsePositive marks names matching configured framework-callback
	// fragments. Advisory only; never suppresses detection.
	FalsePositive bool
}

// Status returns the report annotation for the element.
func (e *CodeElement) Status() string {
	if e.Kind == KindStaticAttribute {
		return "static attribute"
	}
	if e.FalsePositive {
		return "potential false positive"
	}
	return ""
}

// Fingerprint returns a short content-independent hash identifying the
// element across runs, derived from its name, declaring file, and kind.
func (e *CodeElement) Fingerprint() string {
	h := blake3.New()
	h.Write([]byte(e.QualifiedName))
	h.Write([]byte{':'})
	h.Write([]byte(e.DeclaredIn))
	h.Write([]byte{':'})
	h.Write([]byte(e.Kind.String()))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// hasFragment reports whether name contains any of the configured fragments.
func hasFragment(name string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(name, f) {
			return true
		}
	}
	return false
}
