package frontend

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"exhume/pkg/config"
)

// classifyRule parameterizes the shared walk per language.
type classifyRule struct {
	extension string
	// isTest decides test membership from the file's directory (relative
	// to root, lowercased) and its base name.
	isTest func(dirLower, base string) bool
}

// classifyFiles walks root and partitions matching files into analysis and
// test sets. Order follows the lexical directory walk, so the partition is
// deterministic for a fixed tree.
func classifyFiles(root string, cfg *config.Config, rule classifyRule) ([]string, []string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, nil, err
	}

	matchers := loadExcludePatterns(root, cfg)
	excludedDirs := make(map[string]bool, len(cfg.Exclude.Dirs))
	for _, d := range cfg.Exclude.Dirs {
		excludedDirs[d] = true
	}

	var analysis, tests []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		// Skip symlinks that escape the root.
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if path != root && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if isExcluded(matchers, relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), rule.extension) {
			return nil
		}
		if isExcluded(matchers, relPath, false) {
			return nil
		}

		dirLower := strings.ToLower(filepath.Dir(relPath))
		if rule.isTest(dirLower, d.Name()) {
			tests = append(tests, path)
		} else {
			analysis = append(analysis, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	return analysis, tests, nil
}

// loadExcludePatterns combines config patterns with .gitignore files when
// enabled. Config patterns use gitignore syntax.
func loadExcludePatterns(root string, cfg *config.Config) []gitignore.Matcher {
	var patterns []gitignore.Pattern

	for _, pattern := range cfg.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if cfg.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fsys := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fsys, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) == 0 {
		return nil
	}
	return []gitignore.Matcher{gitignore.NewMatcher(patterns)}
}

func isExcluded(matchers []gitignore.Matcher, path string, isDir bool) bool {
	if len(matchers) == 0 || path == "." {
		return false
	}
	parts := strings.Split(path, string(filepath.Separator))
	for _, m := range matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// findGitRoot walks up from start looking for a .git directory.
func findGitRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// isWithinRoot checks that path does not escape root via symlinks.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
