package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Processing.NoteWorkers != 1 {
		t.Errorf("Processing.NoteWorkers = %d, want 1", cfg.Processing.NoteWorkers)
	}
	if len(cfg.Output.Formats) != 3 {
		t.Errorf("Output.Formats = %v, want all three", cfg.Output.Formats)
	}
	if cfg.Output.DateFormat != "2006-01-02" {
		t.Errorf("Output.DateFormat = %q", cfg.Output.DateFormat)
	}
	if cfg.Output.SanitizeChar != "_" {
		t.Errorf("Output.SanitizeChar = %q, want _", cfg.Output.SanitizeChar)
	}
	if !cfg.OCR.Enabled || cfg.OCR.Language != "eng" {
		t.Errorf("OCR = %+v, want enabled with eng", cfg.OCR)
	}
	if !cfg.Markdown.AddFrontMatter {
		t.Error("Markdown.AddFrontMatter = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"no formats", func(c *Config) { c.Output.Formats = nil }, false},
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"docx"} }, false},
		{"zero note workers", func(c *Config) { c.Processing.NoteWorkers = 0 }, false},
		{"zero ocr workers while enabled", func(c *Config) { c.OCR.Workers = 0 }, false},
		{"zero ocr workers while disabled", func(c *Config) { c.OCR.Enabled = false; c.OCR.Workers = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"markdown only", func(c *Config) { c.Output.Formats = []string{"markdown"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrConfigInvalid) {
				t.Errorf("Validate() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name returns ErrEmptyConfigName", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("valid file overlays defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.yaml")
		content := `output:
  formats: ["html"]
ocr:
  enabled: false
processing:
  noteWorkers: 4
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if len(cfg.Output.Formats) != 1 || cfg.Output.Formats[0] != "html" {
			t.Errorf("Formats = %v, want [html]", cfg.Output.Formats)
		}
		if cfg.OCR.Enabled {
			t.Error("OCR.Enabled = true, want false")
		}
		if cfg.Processing.NoteWorkers != 4 {
			t.Errorf("NoteWorkers = %d, want 4", cfg.Processing.NoteWorkers)
		}
		// Unset fields keep their defaults.
		if cfg.Output.DateFormat != "2006-01-02" {
			t.Errorf("DateFormat = %q, want default", cfg.Output.DateFormat)
		}
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.yaml")
		if err := os.WriteFile(path, []byte("outputs:\n  rootDir: x\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.yaml")
		if err := os.WriteFile(path, []byte("output:\n  formats: [\"docx\"]\n"), 0600); err != nil {
			t.Fatalf("setup: %v", err)
		}
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigInvalid) {
			t.Errorf("error = %v, want ErrConfigInvalid", err)
		}
	})

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enex2all.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	// The written file must load back as a valid config.
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() of written default: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written default invalid: %v", err)
	}

	// A second write must refuse to overwrite.
	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault() overwrote an existing file")
	}
}
