package unused

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"exhume/pkg/frontend"
)

func writeFixture(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newAnalyzer(t *testing.T, lang frontend.Language) *Analyzer {
	t.Helper()
	front, err := frontend.New(lang, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(front, WithWorkers(2))
}

func resultNames(report *Report) []string {
	names := make([]string, len(report.Results))
	for i, r := range report.Results {
		names[i] = r.QualifiedName
	}
	return names
}

func containsResult(report *Report, qualified string) bool {
	for _, r := range report.Results {
		if r.QualifiedName == qualified {
			return true
		}
	}
	return false
}

func TestAnalyzePythonUnusedFunction(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"app.py": `def unused_function():
    return 1


def used_function():
    return 2


value = used_function()
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !containsResult(report, "app::unused_function") {
		t.Errorf("results = %v, want app::unused_function", resultNames(report))
	}
	if containsResult(report, "app::used_function") {
		t.Error("used_function should be resolved via its intra-file call")
	}
	for _, r := range report.Results {
		if r.UsageCount != 0 {
			t.Errorf("UsageCount = %d, want 0", r.UsageCount)
		}
	}
}

func TestAnalyzePHPMethodSelfQualification(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"src/Order.php": `<?php
class Order {
    public function usedMethod() {
        return 1;
    }

    public function unusedMethod() {
        return 2;
    }

    public function run() {
        return $this->usedMethod();
    }
}

$order = new Order();
$order->run();
`,
	})

	report, err := newAnalyzer(t, frontend.LangPHP).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !containsResult(report, "Order::unusedMethod") {
		t.Errorf("results = %v, want Order::unusedMethod", resultNames(report))
	}
	if containsResult(report, "Order::usedMethod") {
		t.Error("usedMethod is referenced via $this and must be excluded")
	}
	if containsResult(report, "Order::run") {
		t.Error("run is invoked and must be excluded")
	}
}

func TestAnalyzePHPStaticAttributes(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"src/Registry.php": `<?php
class Registry {
    private static $used = [];
    private static $orphan = [];

    public function add($item) {
        self::$used[] = $item;
    }
}
`,
	})

	report, err := newAnalyzer(t, frontend.LangPHP).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if containsResult(report, "Registry::$used") {
		t.Error("self-referenced static attribute must be excluded")
	}
	if !containsResult(report, "Registry::$orphan") {
		t.Errorf("results = %v, want Registry::$orphan", resultNames(report))
	}
	for _, r := range report.Results {
		if r.QualifiedName == "Registry::$orphan" && r.Status != "static attribute" {
			t.Errorf("Status = %q, want %q", r.Status, "static attribute")
		}
	}
}

func TestAnalyzeCrossFileImportEvidence(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"lib.py": `def exported():
    return 1


def forgotten():
    return 2
`,
		"app.py": `from lib import exported
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if containsResult(report, "lib::exported") {
		t.Error("imported-by-name element must be excluded even without a call site")
	}
	if !containsResult(report, "lib::forgotten") {
		t.Errorf("results = %v, want lib::forgotten", resultNames(report))
	}
}

func TestAnalyzeTestFilesCountAsUsage(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"lib.py": `def covered():
    return 1
`,
		"test_lib.py": `from lib import covered


def test_covered():
    assert covered() == 1
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if containsResult(report, "lib::covered") {
		t.Error("a reference from a test file resolves the element")
	}
	if report.TestFiles != 1 {
		t.Errorf("TestFiles = %d, want 1", report.TestFiles)
	}
}

func TestAnalyzeLimit(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"lib.py": `def one():
    return 1


def two():
    return 2


def three():
    return 3
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).Analyze(root, 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Results) > 2 {
		t.Errorf("len(Results) = %d, want <= 2", len(report.Results))
	}
}

func TestAnalyzeSortOrderAndStability(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"lib.py": `def short():
    return 1


def tall():
    a = 1
    b = 2
    c = 3
    return a + b + c


def short_too():
    return 2
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"lib::tall", "lib::short", "lib::short_too"}
	got := resultNames(report)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("result order = %v, want %v (lines desc, insertion-order ties)", got, want)
	}
}

func TestAnalyzeIdempotence(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"a.py": `def left():
    return 1
`,
		"b.py": `def right():
    return 2
`,
	})

	analyzer := newAnalyzer(t, frontend.LangPython)
	first, err := analyzer.Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := analyzer.Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("two runs over an unchanged tree differ:\n%v\n%v", first, second)
	}
}

func TestAnalyzeInvalidRoot(t *testing.T) {
	_, err := newAnalyzer(t, frontend.LangPython).Analyze(filepath.Join(t.TempDir(), "missing"), 0)
	if err == nil {
		t.Fatal("expected fatal error for invalid root")
	}
}

func TestAnalyzeMalformedFileDegrades(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"broken.py": "def broken(:\n    pass\n",
		"ok.py": `def lonely():
    return 1
`,
	})

	var diagnostics []string
	front, err := frontend.New(frontend.LangPython, nil)
	if err != nil {
		t.Fatal(err)
	}
	analyzer := New(front, WithDiagnostics(func(path string, err error) {
		diagnostics = append(diagnostics, path)
	}))

	report, err := analyzer.Analyze(root, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !containsResult(report, "ok::lonely") {
		t.Errorf("results = %v, want ok::lonely despite a malformed sibling", resultNames(report))
	}
	if len(diagnostics) == 0 {
		t.Error("malformed file should surface a diagnostic")
	}
}

func TestListDeclarations(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, map[string]string{
		"lib.py": `def called():
    return 1


def caller():
    return called()
`,
	})

	report, err := newAnalyzer(t, frontend.LangPython).ListDeclarations(root)
	if err != nil {
		t.Fatal(err)
	}

	// List mode bypasses resolution but not intra-file pre-resolution,
	// which happens at extraction.
	if containsResult(report, "lib::called") {
		t.Error("intra-file pre-resolved element is absent even in list mode")
	}
	if !containsResult(report, "lib::caller") {
		t.Errorf("results = %v, want lib::caller", resultNames(report))
	}
}
