package enex2all

import (
	"context"
	"crypto/md5" // #nosec G501 -- folder-name disambiguation, not security
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alnah/go-enex2all/internal/config"
	"github.com/alnah/go-enex2all/internal/enex"
	"github.com/alnah/go-enex2all/internal/fileutil"
	"github.com/alnah/go-enex2all/internal/note"
)

// NoteState tracks where a note is in its conversion lifecycle.
type NoteState uint8

const (
	StatePending NoteState = iota
	StateSkipped
	StateConverting
	StateDone
	StateFailed
)

func (s NoteState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSkipped:
		return "skipped"
	case StateConverting:
		return "converting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// NoteResult holds the outcome of a single note conversion.
type NoteResult struct {
	Seq    int
	Title  string
	Folder string
	State  NoteState
	Err    error
}

// ArchiveSummary tallies one archive run.
type ArchiveSummary struct {
	Archive   string
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Results   []NoteResult
}

// maxFolderTitleRunes bounds folder names; deep paths break tooling on
// some platforms well before filesystem limits do.
const maxFolderTitleRunes = 100

// cleanCollectionSuffix names the flat PDF collection directory placed
// next to an archive's output tree.
const cleanCollectionSuffix = "_PDF"

// Runner processes whole archives using a pool of note services.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *ServicePool
}

// NewRunner creates a Runner from a validated configuration. extra
// options are applied to every pooled service after the config-derived
// ones, so callers can override them.
func NewRunner(cfg *config.Config, logger *slog.Logger, extra ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	formats, err := ParseFormats(cfg.Output.Formats)
	if err != nil {
		return nil, err
	}

	// One recognition limiter spans the whole pool so OCR load stays
	// bounded no matter how many notes convert at once.
	var ocrSem chan struct{}
	if cfg.OCR.Enabled {
		ocrSem = make(chan struct{}, cfg.OCR.Workers)
	}

	factory := func() (*Service, error) {
		opts := []Option{
			WithFormats(formats...),
			WithFrontMatter(cfg.Markdown.AddFrontMatter),
			WithSanitizeChar(cfg.Output.SanitizeChar),
			WithOCR(cfg.OCR.Enabled, cfg.OCR.Language),
			WithOCRLimiter(ocrSem),
			WithLogger(logger),
		}
		return NewService(append(opts, extra...)...)
	}

	return &Runner{
		cfg:    cfg,
		logger: logger,
		pool:   NewServicePool(cfg.Processing.NoteWorkers, factory),
	}, nil
}

// Close releases every pooled service.
func (r *Runner) Close() error {
	return r.pool.Close()
}

// RunArchive converts every note of one archive into outputRoot. Notes
// whose PDF already sits in the clean collection are skipped, which
// makes interrupted runs resumable. Per-note failures are recorded in
// the summary, not returned: only an unreadable archive is fatal.
func (r *Runner) RunArchive(ctx context.Context, archivePath, outputRoot string) (*ArchiveSummary, error) {
	f, err := os.Open(archivePath) // #nosec G304 -- user-provided archive path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveOpen, err)
	}
	defer f.Close()

	notes, err := readAll(enex.NewReader(f, archivePath))
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(archivePath), filepath.Ext(archivePath))
	outputDir := filepath.Join(outputRoot, base)
	cleanRoot := filepath.Join(outputRoot, base+cleanCollectionSuffix)
	folders := assignFolders(notes, r.cfg.Output.DateFormat, r.cfg.Output.SanitizeChar)

	summary := &ArchiveSummary{
		Archive: archivePath,
		Total:   len(notes),
		Results: make([]NoteResult, len(notes)),
	}
	resumable := r.pdfRequested()

	concurrency := r.pool.Size()
	if concurrency > len(notes) {
		concurrency = len(notes)
	}
	jobs := make(chan int, len(notes))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			svc, err := r.pool.Acquire()
			if err != nil {
				r.logger.Error("service init failed", "error", err)
				for idx := range jobs {
					summary.Results[idx] = NoteResult{
						Seq:    notes[idx].Seq,
						Title:  notes[idx].Title,
						Folder: folders[idx],
						State:  StateFailed,
						Err:    fmt.Errorf("%w: %v", ErrServiceInit, err),
					}
				}
				return
			}
			defer r.pool.Release(svc)

			for idx := range jobs {
				summary.Results[idx] = r.convertOne(ctx, svc, notes[idx], NoteTarget{
					Dir:      filepath.Join(outputDir, folders[idx]),
					CleanDir: filepath.Join(cleanRoot, folders[idx]),
					PDFName:  folders[idx] + ".pdf",
				}, resumable)
			}
		}()
	}

	for i := range notes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, res := range summary.Results {
		switch res.State {
		case StateDone:
			summary.Converted++
		case StateSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	return summary, nil
}

func (r *Runner) pdfRequested() bool {
	for _, f := range r.cfg.Output.Formats {
		if Format(f) == FormatPDF {
			return true
		}
	}
	return false
}

func (r *Runner) convertOne(ctx context.Context, svc *Service, n *note.Note, target NoteTarget, resumable bool) NoteResult {
	res := NoteResult{Seq: n.Seq, Title: n.Title, Folder: filepath.Base(target.Dir)}

	if resumable && hasCleanPDF(target.CleanDir) {
		r.logger.Info("note already converted, skipping",
			"archive", n.Archive, "note", n.Seq, "folder", res.Folder)
		res.State = StateSkipped
		return res
	}
	if err := ctx.Err(); err != nil {
		res.State = StateFailed
		res.Err = err
		return res
	}
	if !resumable {
		target.CleanDir = ""
	}

	res.State = StateConverting
	r.logger.Debug("converting note",
		"archive", n.Archive, "note", n.Seq, "folder", res.Folder)

	if err := svc.ConvertNote(ctx, n, target); err != nil {
		r.logger.Error("note conversion failed",
			"archive", n.Archive, "note", n.Seq, "title", n.Title, "error", err)
		res.State = StateFailed
		res.Err = err
		return res
	}
	res.State = StateDone
	return res
}

// readAll drains a note reader. Archive-level decode errors are fatal:
// the stream position is unknown past a bad token.
func readAll(reader *enex.Reader) ([]*note.Note, error) {
	var notes []*note.Note
	for {
		n, err := reader.Next()
		if err == io.EOF {
			return notes, nil
		}
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
}

// assignFolders names every note's output folder up front, before any
// worker runs, so names are deterministic across runs. Determinism is
// what lets a re-run find the folders an interrupted run created.
func assignFolders(notes []*note.Note, dateFormat, sanitizeChar string) []string {
	folders := make([]string, len(notes))
	used := make(map[string]bool, len(notes))
	for i, n := range notes {
		name := folderName(n, dateFormat, sanitizeChar)
		if used[name] {
			name = name + "_" + shortHash(fmt.Sprintf("%s:%d", n.Title, n.Seq))
		}
		used[name] = true
		folders[i] = name
	}
	return folders
}

func folderName(n *note.Note, dateFormat, sanitizeChar string) string {
	date := "NoDate"
	if !n.Created.IsZero() {
		date = n.Created.Format(dateFormat)
	}
	title := fileutil.SanitizeName(n.Title, sanitizeChar)
	if title == "" {
		title = "Untitled"
	}
	if runes := []rune(title); len(runes) > maxFolderTitleRunes {
		title = string(runes[:maxFolderTitleRunes])
	}
	return date + "_" + title
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s)) // #nosec G401 -- folder-name disambiguation, not security
	return hex.EncodeToString(sum[:])[:4]
}

// hasCleanPDF reports whether a note's clean collection folder already
// holds a finished PDF. Partial writes never land here: the PDF renderer
// moves files in atomically.
func hasCleanPDF(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	return err == nil && len(matches) > 0
}
