package frontend

import (
	"regexp"
	"strings"

	"exhume/pkg/config"
)

// routeWindow is how far before a declaration routing annotations are
// searched for.
const routeWindow = 200

var (
	phpFuncRe         = regexp.MustCompile(`function\s+(\w+)\s*\(`)
	phpStaticAttrRe   = regexp.MustCompile(`(?:public|protected|private)\s+static\s+\$(\w+)`)
	phpBlockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	phpLineCommentRe  = regexp.MustCompile(`//.*?\n`)
	// Matches class-like declarations; the trailing alternation anchors the
	// name to a real declaration header rather than a bare word.
	phpClassRe = regexp.MustCompile(`(?:class|interface|abstract\s+class|trait|enum)\s+(\w+)(?:\s*:\s*\w+|\s+extends|\s+implements|\s*\{)`)
)

// PHP is the regex front end for PHP sources. Its heuristic boundaries
// (annotation window, comment-stripped class scan, brace-depth line count)
// are the contract, not an approximation pending a parser.
type PHP struct {
	cfg       *config.Config
	fragments []string
}

// NewPHP creates the PHP front end.
func NewPHP(cfg *config.Config) *PHP {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &PHP{cfg: cfg, fragments: cfg.FalsePositives.PHP}
}

func (p *PHP) Language() Language { return LangPHP }

// ClassifyFiles partitions .php files; tests live under a directory whose
// relative path contains "test" or end in Test.php.
func (p *PHP) ClassifyFiles(root string) ([]string, []string, error) {
	return classifyFiles(root, p.cfg, classifyRule{
		extension: ".php",
		isTest: func(dirLower, base string) bool {
			return strings.Contains(dirLower, "test") || strings.HasSuffix(base, "Test.php")
		},
	})
}

// ExtractElements scans one file's content for function, method, and static
// attribute declarations.
func (p *PHP) ExtractElements(content []byte, path string) ([]*CodeElement, error) {
	text := string(content)
	var elements []*CodeElement
	seen := make(map[string]bool)

	for _, m := range phpFuncRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		name := text[m[2]:m[3]]

		// Routing annotation in the window before the declaration means the
		// element is dispatched by the framework; never index it.
		windowStart := start - routeWindow
		if windowStart < 0 {
			windowStart = 0
		}
		if strings.Contains(text[windowStart:start], "#[Route") {
			continue
		}

		class := phpEnclosingClass(text, start)
		if class != "" && phpInterfaceRequires(text, class, name) {
			continue
		}

		qualified := name
		kind := KindFunction
		if class != "" {
			qualified = class + "::" + name
			kind = KindMethod
		}
		if seen[qualified] {
			continue
		}
		seen[qualified] = true

		elements = append(elements, &CodeElement{
			QualifiedName: qualified,
			BaseName:      name,
			Scope:         class,
			Kind:          kind,
			DeclaredLines: countBraceLines(text, end),
			DeclaredIn:    path,
			FalsePositive: hasFragment(qualified, p.fragments),
		})
	}

	for _, m := range phpStaticAttrRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		class := phpEnclosingClass(text, m[0])
		if class == "" {
			continue
		}
		qualified := class + "::$" + name
		if seen[qualified] {
			continue
		}
		seen[qualified] = true

		elements = append(elements, &CodeElement{
			QualifiedName: qualified,
			BaseName:      name,
			Scope:         class,
			Kind:          KindStaticAttribute,
			DeclaredLines: 1,
			DeclaredIn:    path,
			FalsePositive: hasFragment(qualified, p.fragments),
		})
	}

	return elements, nil
}

// MatchUsage reports whether content references the element.
func (p *PHP) MatchUsage(content []byte, path string, el *CodeElement) bool {
	text := string(content)
	name := regexp.QuoteMeta(el.BaseName)

	if el.Kind == KindStaticAttribute {
		patterns := []string{
			regexp.QuoteMeta(el.Scope) + `::\$` + name,
			`static::\$` + name,
			`self::\$` + name,
		}
		for _, pat := range patterns {
			if regexp.MustCompile(pat).MatchString(text) {
				return true
			}
		}
		return false
	}

	// A name followed by an open paren counts unless it is the declaration
	// itself ("function name(").
	if matchCallNotPrecededBy(text, el.BaseName, "function") {
		return true
	}
	patterns := []string{
		`\$this->` + name + `\s*\(`,
		`self::` + name + `\s*\(`,
		`static::` + name + `\s*\(`,
	}
	for _, pat := range patterns {
		if regexp.MustCompile(pat).MatchString(text) {
			return true
		}
	}

	// A use-function import elsewhere brings a free function into scope;
	// conservative evidence that it is consumed.
	if el.Kind == KindFunction && path != el.DeclaredIn {
		importRe := regexp.MustCompile(`(?m)^\s*use\s+function\s+(?:[\w\\]+\\)?` + name + `\s*(?:;|\s+as\b)`)
		if importRe.MatchString(text) {
			return true
		}
	}

	return false
}

// phpEnclosingClass returns the innermost class-like declaration preceding
// pos, ignoring declarations inside comments.
func phpEnclosingClass(content string, pos int) string {
	before := content[:pos]
	before = phpBlockCommentRe.ReplaceAllString(before, "")
	before = phpLineCommentRe.ReplaceAllString(before, "")
	matches := phpClassRe.FindAllStringSubmatch(before, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// phpInterfaceRequires reports whether any interface the class declares as
// implemented lists a same-named method. Such methods satisfy a contract and
// are skipped at extraction.
func phpInterfaceRequires(content, class, method string) bool {
	implRe := regexp.MustCompile(`class\s+` + regexp.QuoteMeta(class) + `\s+implements\s+([\w\s,]+)`)
	m := implRe.FindStringSubmatch(content)
	if m == nil {
		return false
	}
	sigRe := regexp.MustCompile(`function\s+` + regexp.QuoteMeta(method) + `\s*\(`)
	for _, iface := range strings.Split(m[1], ",") {
		iface = strings.TrimSpace(iface)
		if iface == "" {
			continue
		}
		bodyRe := regexp.MustCompile(`interface\s+` + regexp.QuoteMeta(iface) + `\s*\{([^}]+)\}`)
		bm := bodyRe.FindStringSubmatch(content)
		if bm == nil {
			continue
		}
		if sigRe.MatchString(bm[1]) {
			return true
		}
	}
	return false
}

// countBraceLines counts lines from start until brace depth returns to zero,
// inclusive of the opening and closing lines.
func countBraceLines(content string, start int) int {
	depth := 0
	lines := 1
	for pos := start; pos < len(content); pos++ {
		switch content[pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return lines
			}
		case '\n':
			lines++
		}
	}
	return lines
}

// matchCallNotPrecededBy reports whether name followed by an open paren
// appears at any position not immediately preceded by the given declaration
// keyword and a single whitespace character.
func matchCallNotPrecededBy(content, name, keyword string) bool {
	re := regexp.MustCompile(regexp.QuoteMeta(name) + `\s*\(`)
	for _, loc := range re.FindAllStringIndex(content, -1) {
		if !precededByKeyword(content, loc[0], keyword) {
			return true
		}
	}
	return false
}

func precededByKeyword(content string, pos int, keyword string) bool {
	n := len(keyword) + 1
	if pos < n {
		return false
	}
	prefix := content[pos-n : pos]
	if !strings.HasPrefix(prefix, keyword) {
		return false
	}
	switch prefix[len(keyword)] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
