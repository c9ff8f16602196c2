package main

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, args, err := parseFlags([]string{"notes.enex"}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parseFlags() error = %v", err)
		}
		if !reflect.DeepEqual(args, []string{"notes.enex"}) {
			t.Errorf("args = %v", args)
		}
		if f.output != "" || f.recursive || len(f.formats) != 0 || f.quiet || f.verbose {
			t.Errorf("defaults not zero: %+v", f)
		}
	})

	t.Run("all flags", func(t *testing.T) {
		f, args, err := parseFlags([]string{
			"-o", "/tmp/out", "-r",
			"--format", "html,pdf",
			"-c", "myconf",
			"--note-workers", "4",
			"--ocr-workers", "3",
			"--ocr-lang", "jpn",
			"--no-ocr", "--no-front-matter",
			"-t", "90s", "-q", "-v",
			"export", "dir2",
		}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("parseFlags() error = %v", err)
		}
		if !reflect.DeepEqual(args, []string{"export", "dir2"}) {
			t.Errorf("args = %v", args)
		}
		if f.output != "/tmp/out" || !f.recursive || f.config != "myconf" {
			t.Errorf("flags = %+v", f)
		}
		if !reflect.DeepEqual(f.formats, []string{"html", "pdf"}) {
			t.Errorf("formats = %v", f.formats)
		}
		if f.noteWorkers != 4 || f.ocrWorkers != 3 || f.ocrLang != "jpn" {
			t.Errorf("worker flags = %+v", f)
		}
		if !f.noOCR || !f.noFrontMatter || f.timeout != "90s" || !f.quiet || !f.verbose {
			t.Errorf("toggles = %+v", f)
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		var buf bytes.Buffer
		if _, _, err := parseFlags([]string{"--bogus"}, &buf); err == nil {
			t.Error("parseFlags() accepted an unknown flag")
		}
	})
}
