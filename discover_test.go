package enex2all

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte("<en-export/>"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestFindArchivesFile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "notes.enex")
	touch(t, archive)

	got, err := FindArchives(archive, false)
	if err != nil {
		t.Fatalf("FindArchives() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{archive}) {
		t.Errorf("FindArchives() = %v", got)
	}
}

func TestFindArchivesRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	touch(t, other)

	if _, err := FindArchives(other, false); !errors.Is(err, ErrNoArchives) {
		t.Errorf("error = %v, want ErrNoArchives", err)
	}
}

func TestFindArchivesMissingPath(t *testing.T) {
	_, err := FindArchives(filepath.Join(t.TempDir(), "missing"), false)
	if !errors.Is(err, ErrArchiveOpen) {
		t.Errorf("error = %v, want ErrArchiveOpen", err)
	}
}

func TestFindArchivesDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.enex"))
	touch(t, filepath.Join(dir, "a.ENEX")) // extension match is case-insensitive
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "c.enex"))

	t.Run("flat scan", func(t *testing.T) {
		got, err := FindArchives(dir, false)
		if err != nil {
			t.Fatalf("FindArchives() error = %v", err)
		}
		want := []string{filepath.Join(dir, "a.ENEX"), filepath.Join(dir, "b.enex")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FindArchives() = %v, want sorted %v", got, want)
		}
	})

	t.Run("recursive scan", func(t *testing.T) {
		got, err := FindArchives(dir, true)
		if err != nil {
			t.Fatalf("FindArchives() error = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("FindArchives() = %v, want 3 archives", got)
		}
	})
}

func TestFindArchivesEmptyDirectory(t *testing.T) {
	if _, err := FindArchives(t.TempDir(), true); !errors.Is(err, ErrNoArchives) {
		t.Errorf("error = %v, want ErrNoArchives", err)
	}
}
