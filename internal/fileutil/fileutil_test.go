package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteTempFile(t *testing.T) {
	t.Run("creates and cleans up", func(t *testing.T) {
		path, cleanup, err := WriteTempFile("<html></html>", "html")
		if err != nil {
			t.Fatalf("WriteTempFile() error = %v", err)
		}
		if !strings.HasSuffix(path, ".html") {
			t.Errorf("path = %q, want .html suffix", path)
		}
		data, err := os.ReadFile(path) // #nosec G304 -- test-owned temp path
		if err != nil {
			t.Fatalf("reading temp file: %v", err)
		}
		if string(data) != "<html></html>" {
			t.Errorf("content = %q", data)
		}
		cleanup()
		if FileExists(path) {
			t.Error("cleanup left the file behind")
		}
	})

	t.Run("rejects unsafe extensions", func(t *testing.T) {
		tests := []struct {
			ext     string
			wantErr error
		}{
			{"", ErrExtensionEmpty},
			{"a/b", ErrExtensionPathTraversal},
			{`a\b`, ErrExtensionPathTraversal},
			{"a\x00b", ErrExtensionPathTraversal},
		}
		for _, tt := range tests {
			_, _, err := WriteTempFile("x", tt.ext)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WriteTempFile(ext=%q) error = %v, want %v", tt.ext, err, tt.wantErr)
			}
		}
	})
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if FileExists(path) {
		t.Error("FileExists() = true for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !FileExists(path) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for a directory")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean name unchanged", "Trip Notes", "Trip Notes"},
		{"slashes replaced", "a/b\\c", "a_b_c"},
		{"windows reserved chars", `q: "v" <t>?*|`, "q_ _v_ _t____"},
		{"control chars replaced", "a\tb\nc", "a_b_c"},
		{"surrounding space trimmed", "  padded  ", "padded"},
		{"unicode preserved", "日記 2023", "日記 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in, "_"); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.html")

	if err := WriteFileIdempotent(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	first, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	// A rewrite with identical content must not touch the file.
	time.Sleep(10 * time.Millisecond)
	if err := WriteFileIdempotent(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("identical rewrite: %v", err)
	}
	second, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !second.ModTime().Equal(first.ModTime()) {
		t.Error("identical rewrite changed the file")
	}

	// Different content must be written.
	if err := WriteFileIdempotent(path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("changed rewrite: %v", err)
	}
	data, err := os.ReadFile(path) // #nosec G304 -- test-owned path
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}
