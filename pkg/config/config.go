package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for exhume.
type Config struct {
	// Scan settings
	Scan ScanConfig `koanf:"scan" toml:"scan" yaml:"scan"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude" yaml:"exclude"`

	// Name fragments that flag results as likely false positives
	FalsePositives FalsePositiveConfig `koanf:"false_positives" toml:"false_positives" yaml:"false_positives"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output" yaml:"output"`
}

// ScanConfig controls the resolution pipeline.
type ScanConfig struct {
	// Workers is the resolution pool size; 0 means one per CPU.
	Workers int `koanf:"workers" toml:"workers" yaml:"workers"`
	// Limit caps the number of reported results; 0 means unlimited.
	Limit int `koanf:"limit" toml:"limit" yaml:"limit"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs" toml:"dirs" yaml:"dirs"`
	Patterns  []string `koanf:"patterns" toml:"patterns" yaml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" yaml:"gitignore"`
}

// FalsePositiveConfig lists name fragments per language that are prone to
// spurious "unused" results (framework hooks, lifecycle callbacks). Matching
// elements are still reported, only flagged.
type FalsePositiveConfig struct {
	PHP    []string `koanf:"php" toml:"php" yaml:"php"`
	Python []string `koanf:"python" toml:"python" yaml:"python"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format" yaml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color" yaml:"color"`
	HTML   bool   `koanf:"html" toml:"html" yaml:"html"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers: 0,
			Limit:   0,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				"vendor",
				"cache",
				"venv",
				".venv",
				"__pycache__",
				"node_modules",
				".git",
			},
			Patterns:  []string{},
			Gitignore: true,
		},
		FalsePositives: FalsePositiveConfig{
			PHP: []string{
				"Listener",
				"processNode",
				"Subscriber",
				"EventSubscriber",
				"Kernel",
				"onAuthenticationFailure",
				"onAuthenticationSuccess",
				"RequirementCollection",
				"getHelpHtml",
				"Command",
				"Handler",
				"onLogout",
				"__invoke",
				"teardown",
				"__toString",
				"getNodeType",
			},
			Python: []string{
				"test_",
				"setup",
				"teardown",
			},
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			HTML:   false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"exhume.toml",
		"exhume.yaml",
		"exhume.yml",
		"exhume.json",
		".exhume.toml",
		".exhume.yaml",
		".exhume.yml",
		".exhume.json",
	}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			cfg, err := Load(name)
			if err == nil {
				return cfg
			}
		}
	}

	return DefaultConfig()
}

// Fragments returns the false-positive name fragments for a language key.
func (c *Config) Fragments(language string) []string {
	switch strings.ToLower(language) {
	case "php":
		return c.FalsePositives.PHP
	case "python":
		return c.FalsePositives.Python
	default:
		return nil
	}
}
