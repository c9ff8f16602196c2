// Package config loads the pipeline configuration from YAML files and
// supplies the defaults used when no file is given.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-enex2all/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config")
)

// Config holds all configuration for archive conversion.
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Markdown   MarkdownConfig   `yaml:"markdown"`
	OCR        OCRConfig        `yaml:"ocr"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// InputConfig defines input source options.
type InputConfig struct {
	DefaultPath string `yaml:"defaultPath"` // Default archive file or directory (empty = must specify)
	Recursive   bool   `yaml:"recursive"`   // Descend into subdirectories when the input is a directory
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	RootDir      string   `yaml:"rootDir"`      // Root output directory (empty = alongside the archive)
	DateFormat   string   `yaml:"dateFormat"`   // Go reference-time layout for folder-name date prefixes
	SanitizeChar string   `yaml:"sanitizeChar"` // Replacement for characters unsafe in file names
	Formats      []string `yaml:"formats"`      // Output formats to produce: html, markdown, pdf
}

// MarkdownConfig defines Markdown output options.
type MarkdownConfig struct {
	AddFrontMatter bool `yaml:"addFrontMatter"`
}

// OCRConfig defines text recognition options.
type OCRConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"` // Tesseract language code, e.g. "eng"
	Workers  int    `yaml:"workers"`  // Concurrent recognition jobs across all notes
}

// ProcessingConfig defines concurrency options.
type ProcessingConfig struct {
	NoteWorkers int `yaml:"noteWorkers"` // Concurrent notes per archive
}

// LoggingConfig defines log output options.
type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// DefaultConfig returns the configuration used when no file is given.
// Note processing defaults to a single worker: the PDF stage drives one
// shared browser, and sequential notes keep memory use predictable on
// large archives.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{Recursive: false},
		Output: OutputConfig{
			DateFormat:   "2006-01-02",
			SanitizeChar: "_",
			Formats:      []string{"html", "markdown", "pdf"},
		},
		Markdown:   MarkdownConfig{AddFrontMatter: true},
		OCR:        OCRConfig{Enabled: true, Language: "eng", Workers: 2},
		Processing: ProcessingConfig{NoteWorkers: 1},
		Logging:    LoggingConfig{Level: "info"},
	}
}

// validFormats are the accepted output format names.
var validFormats = map[string]bool{"html": true, "markdown": true, "pdf": true}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if len(c.Output.Formats) == 0 {
		return fmt.Errorf("%w: at least one output format is required", ErrConfigInvalid)
	}
	for _, f := range c.Output.Formats {
		if !validFormats[f] {
			return fmt.Errorf("%w: unknown format %q", ErrConfigInvalid, f)
		}
	}
	if c.Processing.NoteWorkers < 1 {
		return fmt.Errorf("%w: noteWorkers must be at least 1", ErrConfigInvalid)
	}
	if c.OCR.Enabled && c.OCR.Workers < 1 {
		return fmt.Errorf("%w: ocr workers must be at least 1", ErrConfigInvalid)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrConfigInvalid, c.Logging.Level)
	}
	return nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard
// locations. Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path so users have a
// documented starting point. Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrConfigInvalid, path)
	}
	data, err := yamlutil.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- config file is not sensitive
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-enex2all/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2) // 2 locations

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-enex2all", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
