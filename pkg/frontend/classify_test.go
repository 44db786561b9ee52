package frontend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"exhume/pkg/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
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

func TestClassifyPHP(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/Order.php":            "<?php\n",
		"src/Billing/Invoice.php":  "<?php\n",
		"tests/OrderTest.php":      "<?php\n",
		"src/LegacyTest.php":       "<?php\n",
		"vendor/lib/Autoload.php":  "<?php\n",
		"var/cache/Container.php":  "<?php\n",
		"src/notes.txt":            "not php",
		"src/templates/view.html":  "<html>",
	})

	analysis, tests, err := NewPHP(nil).ClassifyFiles(root)
	if err != nil {
		t.Fatal(err)
	}

	wantAnalysis := []string{
		filepath.Join(root, "src/Billing/Invoice.php"),
		filepath.Join(root, "src/Order.php"),
	}
	wantTests := []string{
		filepath.Join(root, "src/LegacyTest.php"),
		filepath.Join(root, "tests/OrderTest.php"),
	}

	if len(analysis) != len(wantAnalysis) {
		t.Fatalf("analysis = %v, want %v", analysis, wantAnalysis)
	}
	for i, want := range wantAnalysis {
		if analysis[i] != want {
			t.Errorf("analysis[%d] = %q, want %q", i, analysis[i], want)
		}
	}
	if len(tests) != len(wantTests) {
		t.Fatalf("tests = %v, want %v", tests, wantTests)
	}
	for i, want := range wantTests {
		if tests[i] != want {
			t.Errorf("tests[%d] = %q, want %q", i, tests[i], want)
		}
	}
}

func TestClassifyPython(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/orders.py":          "",
		"pkg/test_orders.py":     "",
		"pkg/orders_test.py":     "",
		"tests/conftest.py":      "",
		"venv/lib/site.py":       "",
		"__pycache__/orders.py":  "",
	})

	analysis, tests, err := NewPython(nil).ClassifyFiles(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(analysis) != 1 || analysis[0] != filepath.Join(root, "pkg/orders.py") {
		t.Errorf("analysis = %v, want only pkg/orders.py", analysis)
	}
	if len(tests) != 3 {
		t.Errorf("tests = %v, want 3 entries", tests)
	}
}

func TestClassifyDisjoint(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":      "",
		"test_a.py": "",
	})

	analysis, tests, err := NewPython(nil).ClassifyFiles(root)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, f := range analysis {
		seen[f] = true
	}
	for _, f := range tests {
		if seen[f] {
			t.Errorf("%q classified as both analysis and test", f)
		}
	}
}

func TestClassifyInvalidRoot(t *testing.T) {
	_, _, err := NewPHP(nil).ClassifyFiles(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("err = %v, want ErrInvalidRoot", err)
	}

	// A file is not a valid root either.
	root := t.TempDir()
	file := filepath.Join(root, "plain.php")
	if err := os.WriteFile(file, []byte("<?php\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err = NewPHP(nil).ClassifyFiles(file)
	if !errors.Is(err, ErrInvalidRoot) {
		t.Errorf("err = %v, want ErrInvalidRoot", err)
	}
}

func TestClassifyConfigPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/keep.php":      "<?php\n",
		"src/generated.php": "<?php\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"generated.php"}
	cfg.Exclude.Gitignore = false

	analysis, _, err := NewPHP(cfg).ClassifyFiles(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(analysis) != 1 || analysis[0] != filepath.Join(root, "src/keep.php") {
		t.Errorf("analysis = %v, want only src/keep.php", analysis)
	}
}
