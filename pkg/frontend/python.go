package frontend

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"exhume/pkg/config"
)

// Python is the syntax-tree front end for Python sources. Extraction walks a
// tree-sitter parse; usage matching stays textual like the PHP variant.
type Python struct {
	cfg       *config.Config
	fragments []string
}

// NewPython creates the Python front end.
func NewPython(cfg *config.Config) *Python {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Python{cfg: cfg, fragments: cfg.FalsePositives.Python}
}

func (py *Python) Language() Language { return LangPython }

// ClassifyFiles partitions .py files; tests live under a directory whose
// relative path contains "test" or follow the test_*/*_test naming
// convention.
func (py *Python) ClassifyFiles(root string) ([]string, []string, error) {
	return classifyFiles(root, py.cfg, classifyRule{
		extension: ".py",
		isTest: func(dirLower, base string) bool {
			return strings.Contains(dirLower, "test") ||
				strings.HasPrefix(base, "test_") ||
				strings.HasSuffix(base, "_test.py")
		},
	})
}

// ExtractElements parses one file and collects its function, method, and
// property declarations, then pre-resolves intra-file references: direct
// calls and self-qualified calls inside the same file remove the target
// before it ever reaches the cross-file index.
func (py *Python) ExtractElements(content []byte, path string) ([]*CodeElement, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &MalformedSourceError{Path: path}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, &MalformedSourceError{Path: path}
	}

	module := strings.TrimSuffix(filepath.Base(path), ".py")

	var elements []*CodeElement
	seen := make(map[string]bool)

	walk(root, func(node *sitter.Node) bool {
		if node.Type() != "function_definition" {
			return true
		}

		name := nodeText(node.ChildByFieldName("name"), content)
		if name == "" {
			return true
		}

		decorators := nodeDecorators(node, content)
		if hasDecoratorFragment(decorators, "validator") || hasDecoratorFragment(decorators, "route") {
			return true
		}

		class := enclosingClassName(node, content)
		qualified := module + "::" + name
		kind := KindFunction
		if class != "" {
			qualified = module + "::" + class + "::" + name
			kind = KindMethod
		}
		if isPropertyDecorated(decorators) {
			kind = KindProperty
		}
		if seen[qualified] {
			return true
		}
		seen[qualified] = true

		elements = append(elements, &CodeElement{
			QualifiedName: qualified,
			BaseName:      name,
			Scope:         class,
			Kind:          kind,
			DeclaredLines: declaredLineSpan(node, content),
			DeclaredIn:    path,
			FalsePositive: hasFragment(qualified, py.fragments),
		})
		return true
	})

	return py.preResolve(root, content, module, elements), nil
}

// preResolve drops elements referenced within their own file, via direct
// call for module-level functions or self-qualified call for methods.
func (py *Python) preResolve(root *sitter.Node, content []byte, module string, elements []*CodeElement) []*CodeElement {
	resolved := make(map[string]bool)

	walk(root, func(node *sitter.Node) bool {
		if node.Type() != "call" {
			return true
		}
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return true
		}
		switch fn.Type() {
		case "identifier":
			resolved[module+"::"+nodeText(fn, content)] = true
		case "attribute":
			obj := fn.ChildByFieldName("object")
			attr := fn.ChildByFieldName("attribute")
			if obj != nil && attr != nil && obj.Type() == "identifier" && nodeText(obj, content) == "self" {
				suffix := "::" + nodeText(attr, content)
				for _, el := range elements {
					if strings.HasSuffix(el.QualifiedName, suffix) {
						resolved[el.QualifiedName] = true
					}
				}
			}
		}
		return true
	})

	if len(resolved) == 0 {
		return elements
	}
	kept := elements[:0]
	for _, el := range elements {
		if !resolved[el.QualifiedName] {
			kept = append(kept, el)
		}
	}
	return kept
}

// MatchUsage reports whether content references the element.
func (py *Python) MatchUsage(content []byte, path string, el *CodeElement) bool {
	text := string(content)
	name := regexp.QuoteMeta(el.BaseName)

	switch el.Kind {
	case KindProperty:
		// Property access never uses call syntax; any attribute access
		// through any receiver counts, super() included.
		if regexp.MustCompile(`\.\s*`+name+`\b`).MatchString(text) {
			return true
		}
	case KindMethod:
		if regexp.MustCompile(`\w\s*\.\s*`+name+`\s*\(`).MatchString(text) {
			return true
		}
		if regexp.MustCompile(`super\(\)\s*\.\s*`+name+`\s*\(`).MatchString(text) {
			return true
		}
	default:
		// Direct call anywhere except the declaration itself; receiver-
		// qualified calls match the same pattern.
		if matchCallNotPrecededBy(text, el.BaseName, "def") {
			return true
		}
	}

	if path != el.DeclaredIn && matchImportEvidence(text, name) {
		return true
	}
	return false
}

// matchImportEvidence reports whether an import statement brings the base
// name into scope: direct import, from-import, or dotted-module import.
// Deliberately conservative; it cannot verify the import is ever called.
func matchImportEvidence(text, quotedName string) bool {
	patterns := []string{
		`(?m)^\s*import\s+(?:[\w.]+\s*,\s*)*(?:[\w.]+\.)?` + quotedName + `\b`,
		`(?m)^\s*from\s+[\w.]+\s+import\s+[^\n]*\b` + quotedName + `\b`,
	}
	for _, pat := range patterns {
		if regexp.MustCompile(pat).MatchString(text) {
			return true
		}
	}
	return false
}

// walk traverses the syntax tree depth-first; returning false from the
// visitor prunes the subtree.
func walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visitor)
	}
}

// nodeText extracts the source text for a node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// nodeDecorators returns the decorator texts attached to a definition,
// without the leading @.
func nodeDecorators(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var decorators []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(nodeText(child, source), "@"))
		}
	}
	return decorators
}

func hasDecoratorFragment(decorators []string, fragment string) bool {
	for _, d := range decorators {
		if strings.Contains(strings.ToLower(d), fragment) {
			return true
		}
	}
	return false
}

// isPropertyDecorated reports whether the decorator stack produces a
// property: bare @property, functools.cached_property, or a .setter/.getter/
// .deleter companion.
func isPropertyDecorated(decorators []string) bool {
	for _, d := range decorators {
		name := strings.SplitN(d, "(", 2)[0]
		if name == "property" || strings.HasSuffix(name, ".setter") ||
			strings.HasSuffix(name, ".getter") || strings.HasSuffix(name, ".deleter") ||
			strings.Contains(name, "cached_property") {
			return true
		}
	}
	return false
}

// enclosingClassName returns the class a function is a direct member of.
// Functions nested inside other functions count as module-level, matching
// the qualified-name scheme used for intra-file resolution.
func enclosingClassName(node *sitter.Node, source []byte) string {
	structural := node.Parent()
	if structural != nil && structural.Type() == "decorated_definition" {
		structural = structural.Parent()
	}
	if structural == nil || structural.Type() != "block" {
		return ""
	}
	grandparent := structural.Parent()
	if grandparent == nil || grandparent.Type() != "class_definition" {
		return ""
	}
	return nodeText(grandparent.ChildByFieldName("name"), source)
}

// declaredLineSpan measures the declaration's line span from the node
// boundaries, falling back to a blank-line scan when the body is missing
// (error-recovered regions). The fallback approximates block end at two
// consecutive line breaks and can undercount blocks with embedded blank
// lines.
func declaredLineSpan(node *sitter.Node, content []byte) int {
	if node.ChildByFieldName("body") != nil {
		return int(node.EndPoint().Row-node.StartPoint().Row) + 1
	}
	return blankLineSpan(content, node.StartByte())
}

func blankLineSpan(content []byte, start uint32) int {
	rest := content[start:]
	if i := bytes.Index(rest, []byte("\n\n")); i >= 0 {
		return bytes.Count(rest[:i], []byte("\n")) + 1
	}
	return bytes.Count(rest, []byte("\n")) + 1
}
