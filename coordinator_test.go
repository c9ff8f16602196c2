package enex2all

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-enex2all/internal/config"
	"github.com/alnah/go-enex2all/internal/note"
	"github.com/alnah/go-enex2all/internal/render"
)

const enmlPrefix = `<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd">`

// testArchive holds three notes: two convertible, one whose media
// reference cannot resolve.
const testArchive = `<?xml version="1.0" encoding="UTF-8"?>
<en-export export-date="20230601T120000Z" application="Evernote" version="10.0">
  <note>
    <title>First Note</title>
    <content><![CDATA[` + enmlPrefix + `<en-note><div>hello</div></en-note>]]></content>
    <created>20230501T093000Z</created>
  </note>
  <note>
    <title>Second Note</title>
    <content><![CDATA[` + enmlPrefix + `<en-note><div>world</div></en-note>]]></content>
    <created>20230502T093000Z</created>
  </note>
  <note>
    <title>Broken Media</title>
    <content><![CDATA[` + enmlPrefix + `<en-note><en-media hash="00000000000000000000000000000000" type="image/png"/></en-note>]]></content>
    <created>20230503T093000Z</created>
  </note>
</en-export>`

// stubPDFEngine returns fixed bytes so archive runs never need a browser.
type stubPDFEngine struct {
	mu      sync.Mutex
	renders int
	closed  bool
}

func (e *stubPDFEngine) RenderHTML(_ context.Context, _ string) ([]byte, error) {
	e.mu.Lock()
	e.renders++
	e.mu.Unlock()
	return []byte("%PDF-stub"), nil
}

func (e *stubPDFEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ render.PDFEngine = (*stubPDFEngine)(nil)

func testRunnerConfig(formats ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.Formats = formats
	cfg.OCR.Enabled = false
	cfg.Processing.NoteWorkers = 2
	return cfg
}

func writeArchive(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.enex")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, cfg *config.Config, extra ...Option) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, discardLogger(), extra...)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRunArchive(t *testing.T) {
	archive := writeArchive(t, testArchive)
	outputRoot := t.TempDir()
	engine := &stubPDFEngine{}
	runner := newTestRunner(t, testRunnerConfig("markdown", "pdf"), WithPDFEngine(engine))

	summary, err := runner.RunArchive(context.Background(), archive, outputRoot)
	if err != nil {
		t.Fatalf("RunArchive() error = %v", err)
	}
	if summary.Total != 3 || summary.Converted != 2 || summary.Failed != 1 || summary.Skipped != 0 {
		t.Fatalf("summary = total %d converted %d skipped %d failed %d, want 3/2/0/1",
			summary.Total, summary.Converted, summary.Skipped, summary.Failed)
	}

	// Converted notes get dated folders with both outputs, plus a copy in
	// the clean PDF collection.
	for _, folder := range []string{"2023-05-01_First Note", "2023-05-02_Second Note"} {
		noteDir := filepath.Join(outputRoot, "sample", folder)
		for _, name := range []string{"content.md", folder + ".pdf"} {
			if _, err := os.Stat(filepath.Join(noteDir, name)); err != nil {
				t.Errorf("missing output %s/%s: %v", folder, name, err)
			}
		}
		clean := filepath.Join(outputRoot, "sample_PDF", folder, folder+".pdf")
		if _, err := os.Stat(clean); err != nil {
			t.Errorf("missing clean collection PDF for %s: %v", folder, err)
		}
	}

	// The broken note is recorded, not silently dropped.
	var broken *NoteResult
	for i := range summary.Results {
		if summary.Results[i].Title == "Broken Media" {
			broken = &summary.Results[i]
		}
	}
	if broken == nil || broken.State != StateFailed || broken.Err == nil {
		t.Errorf("broken note result = %+v, want a recorded failure", broken)
	}
}

func TestRunArchiveResume(t *testing.T) {
	archive := writeArchive(t, testArchive)
	outputRoot := t.TempDir()
	cfg := testRunnerConfig("markdown", "pdf")

	first := newTestRunner(t, cfg, WithPDFEngine(&stubPDFEngine{}))
	if _, err := first.RunArchive(context.Background(), archive, outputRoot); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A fresh runner over the same output resumes: finished notes are
	// skipped, the broken one is retried.
	engine := &stubPDFEngine{}
	second := newTestRunner(t, cfg, WithPDFEngine(engine))
	summary, err := second.RunArchive(context.Background(), archive, outputRoot)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Skipped != 2 || summary.Failed != 1 || summary.Converted != 0 {
		t.Errorf("resume summary = converted %d skipped %d failed %d, want 0/2/1",
			summary.Converted, summary.Skipped, summary.Failed)
	}
	if engine.renders != 0 {
		t.Errorf("engine rendered %d pages on resume, want 0", engine.renders)
	}
}

func TestRunArchiveWithoutPDFNeverSkips(t *testing.T) {
	archive := writeArchive(t, testArchive)
	outputRoot := t.TempDir()
	cfg := testRunnerConfig("markdown")

	for run := 0; run < 2; run++ {
		runner := newTestRunner(t, cfg)
		summary, err := runner.RunArchive(context.Background(), archive, outputRoot)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if summary.Skipped != 0 || summary.Converted != 2 {
			t.Errorf("run %d: converted %d skipped %d, want 2/0 without a resume oracle",
				run, summary.Converted, summary.Skipped)
		}
	}

	// No clean collection without PDF output.
	if _, err := os.Stat(filepath.Join(outputRoot, "sample_PDF")); !os.IsNotExist(err) {
		t.Error("clean collection created although no PDF was requested")
	}
}

func TestRunArchiveMissingFile(t *testing.T) {
	runner := newTestRunner(t, testRunnerConfig("markdown"))
	_, err := runner.RunArchive(context.Background(), filepath.Join(t.TempDir(), "nope.enex"), t.TempDir())
	if !errors.Is(err, ErrArchiveOpen) {
		t.Errorf("error = %v, want ErrArchiveOpen", err)
	}
}

func TestRunArchiveMalformed(t *testing.T) {
	archive := writeArchive(t, "<en-export><note><title>x</title>")
	runner := newTestRunner(t, testRunnerConfig("markdown"))
	if _, err := runner.RunArchive(context.Background(), archive, t.TempDir()); err == nil {
		t.Error("RunArchive() = nil error for a truncated archive")
	}
}

func TestNewRunnerRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Formats = []string{"docx"}
	if _, err := NewRunner(cfg, discardLogger()); err == nil {
		t.Error("NewRunner() accepted an invalid config")
	}
}

func TestAssignFolders(t *testing.T) {
	created := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	notes := []*note.Note{
		{Seq: 0, Title: "Same", Created: created},
		{Seq: 1, Title: "Same", Created: created},
		{Seq: 2, Title: "Other", Created: created},
	}

	folders := assignFolders(notes, "2006-01-02", "_")
	if folders[0] != "2023-05-01_Same" {
		t.Errorf("folders[0] = %q", folders[0])
	}
	if !strings.HasPrefix(folders[1], "2023-05-01_Same_") || folders[1] == folders[0] {
		t.Errorf("folders[1] = %q, want a suffixed duplicate", folders[1])
	}
	if folders[2] != "2023-05-01_Other" {
		t.Errorf("folders[2] = %q", folders[2])
	}

	// Names must be stable across runs so a resume finds its folders.
	again := assignFolders(notes, "2006-01-02", "_")
	for i := range folders {
		if folders[i] != again[i] {
			t.Errorf("folders[%d] changed between runs: %q vs %q", i, folders[i], again[i])
		}
	}
}

func TestFolderName(t *testing.T) {
	created := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		note *note.Note
		want string
	}{
		{"dated and titled", &note.Note{Title: "Trip", Created: created}, "2023-05-01_Trip"},
		{"missing date", &note.Note{Title: "Trip"}, "NoDate_Trip"},
		{"missing title", &note.Note{Created: created}, "2023-05-01_Untitled"},
		{"unsafe characters", &note.Note{Title: "a/b:c", Created: created}, "2023-05-01_a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := folderName(tt.note, "2006-01-02", "_"); got != tt.want {
				t.Errorf("folderName() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("long titles are truncated", func(t *testing.T) {
		n := &note.Note{Title: strings.Repeat("x", 300), Created: created}
		got := folderName(n, "2006-01-02", "_")
		if want := "2023-05-01_" + strings.Repeat("x", maxFolderTitleRunes); got != want {
			t.Errorf("folderName() length = %d, want truncation to %d title runes", len(got), maxFolderTitleRunes)
		}
	})
}

func TestHasCleanPDF(t *testing.T) {
	dir := t.TempDir()
	if hasCleanPDF(dir) {
		t.Error("hasCleanPDF() = true for an empty folder")
	}
	if hasCleanPDF(filepath.Join(dir, "missing")) {
		t.Error("hasCleanPDF() = true for a missing folder")
	}
	if err := os.WriteFile(filepath.Join(dir, "note.pdf"), []byte("%PDF"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !hasCleanPDF(dir) {
		t.Error("hasCleanPDF() = false with a PDF present")
	}
}
