package enex2all

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-enex2all/internal/document"
	"github.com/alnah/go-enex2all/internal/enml"
	"github.com/alnah/go-enex2all/internal/extract"
	"github.com/alnah/go-enex2all/internal/note"
	"github.com/alnah/go-enex2all/internal/ocr"
	"github.com/alnah/go-enex2all/internal/render"
)

// resourceExtractor writes a note's attachments to disk and returns the
// hash-to-filename map normalization needs.
type resourceExtractor interface {
	Extract(resources []note.Resource, noteDir string) (extract.Result, error)
}

// contentNormalizer turns a raw note body into the intermediate tree.
type contentNormalizer interface {
	Normalize(body string, resources note.ResourceMap, dropped int) (*document.Document, error)
}

// imageEnricher produces recognition results for one image. A nil result
// means recognition was unavailable; the note still converts.
type imageEnricher interface {
	Enrich(ctx context.Context, imagePath, payload string) *ocr.Result
}

// Compile-time interface implementation checks.
var (
	_ resourceExtractor = (*extract.Extractor)(nil)
	_ contentNormalizer = (*enml.Normalizer)(nil)
	_ imageEnricher     = (*ocr.Enricher)(nil)
	_ render.PDFEngine  = (*render.RodEngine)(nil)
	_ ocr.Engine        = (*ocr.TesseractEngine)(nil)
)

const dirPermissions = 0o750

// Service converts single notes. It owns one browser instance at most,
// so a Service must not convert notes concurrently; use ServicePool for
// parallelism.
type Service struct {
	cfg        serviceConfig
	extractor  resourceExtractor
	normalizer contentNormalizer
	enricher   imageEnricher
	renderers  []render.Renderer

	ocrEngine ocr.Engine
	pdfEngine render.PDFEngine
	ocrSem    chan struct{}
}

// NewService creates a Service with default configuration. Use options
// to customize behavior (e.g. WithFormats, WithTimeout, WithOCR).
func NewService(opts ...Option) (*Service, error) {
	s := &Service{
		cfg: serviceConfig{
			timeout:        defaultTimeout,
			formats:        []Format{FormatHTML, FormatMarkdown, FormatPDF},
			addFrontMatter: true,
			sanitizeChar:   "_",
			ocrEnabled:     true,
			ocrLanguage:    "eng",
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.logger == nil {
		s.cfg.logger = slog.Default()
	}
	if len(s.cfg.formats) == 0 {
		return nil, ErrNoFormats
	}

	s.extractor = extract.New(s.cfg.sanitizeChar, s.cfg.logger)
	s.normalizer = enml.New(s.cfg.logger)

	for _, f := range s.cfg.formats {
		switch f {
		case FormatHTML:
			r, err := render.NewHTMLRenderer()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrServiceInit, err)
			}
			s.renderers = append(s.renderers, r)
		case FormatMarkdown:
			s.renderers = append(s.renderers,
				render.NewMarkdownRenderer(s.cfg.addFrontMatter, s.cfg.logger))
		case FormatPDF:
			if s.pdfEngine == nil {
				s.pdfEngine = render.NewRodEngine(s.cfg.timeout)
			}
			r, err := render.NewPDFRenderer(s.pdfEngine)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrServiceInit, err)
			}
			s.renderers = append(s.renderers, r)
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, f)
		}
	}

	// Recognition only matters when a PDF is produced: it exists to make
	// the PDF text layer searchable.
	if s.cfg.ocrEnabled && s.hasFormat(FormatPDF) {
		if s.ocrEngine == nil {
			s.ocrEngine = ocr.NewTesseractEngine(s.cfg.ocrLanguage)
		}
		s.enricher = ocr.NewEnricher(s.ocrEngine, s.cfg.logger)
	}

	return s, nil
}

func (s *Service) hasFormat(f Format) bool {
	for _, have := range s.cfg.formats {
		if have == f {
			return true
		}
	}
	return false
}

// ConvertNote runs the full per-note pipeline: extraction, recognition,
// normalization, then one render per selected format. Renderers fail
// independently; the returned error joins every failure but a broken
// format never blocks the others.
func (s *Service) ConvertNote(ctx context.Context, n *note.Note, target NoteTarget) error {
	if n == nil {
		return ErrNilNote
	}
	if target.Dir == "" {
		return ErrEmptyTargetDir
	}
	if s.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.timeout)
		defer cancel()
	}

	if err := os.MkdirAll(target.Dir, dirPermissions); err != nil {
		return fmt.Errorf("creating note folder: %w", err)
	}

	res, err := s.extractor.Extract(n.Resources, target.Dir)
	if err != nil {
		return fmt.Errorf("extracting resources: %w", err)
	}

	var ocrResults map[string]*ocr.Result
	if s.enricher != nil {
		ocrResults = s.recognizeImages(ctx, res, target.Dir)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := s.normalizer.Normalize(n.Content, res.Map, res.Dropped)
	if err != nil {
		return fmt.Errorf("normalizing note body: %w", err)
	}

	pdfName := target.PDFName
	if pdfName == "" {
		pdfName = filepath.Base(target.Dir) + ".pdf"
	}
	in := render.Input{
		Note:     n,
		Doc:      doc,
		NoteDir:  target.Dir,
		CleanDir: target.CleanDir,
		PDFName:  pdfName,
		OCR:      ocrResults,
	}

	var errs []error
	for _, r := range s.renderers {
		if renderErr := r.Render(ctx, in); renderErr != nil {
			s.cfg.logger.Error("render failed",
				"format", r.Name(),
				"archive", n.Archive,
				"note", n.Seq,
				"error", renderErr)
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), renderErr))
		}
	}
	return errors.Join(errs...)
}

// recognizeImages runs recognition over every extracted image, bounded
// by the shared limiter when one is set. Results are keyed the way the
// normalizer writes image sources, attachments folder included. All
// recognition failures degrade to "no text layer for this image".
func (s *Service) recognizeImages(ctx context.Context, res extract.Result, noteDir string) map[string]*ocr.Result {
	results := make(map[string]*ocr.Result)
	var mu sync.Mutex
	var g errgroup.Group

	for _, ref := range res.Map {
		if !ref.IsImage() {
			continue
		}
		fileName := ref.FileName
		g.Go(func() error {
			if s.ocrSem != nil {
				select {
				case s.ocrSem <- struct{}{}:
					defer func() { <-s.ocrSem }()
				case <-ctx.Done():
					return nil
				}
			}
			r := s.enricher.Enrich(ctx,
				filepath.Join(noteDir, extract.AttachmentsDir, fileName),
				res.Recognition[fileName])
			if r == nil {
				return nil
			}
			mu.Lock()
			results[path.Join(extract.AttachmentsDir, fileName)] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers only ever return nil; Wait is the barrier

	if len(results) == 0 {
		return nil
	}
	return results
}

// Close releases resources (headless Chrome browser).
func (s *Service) Close() error {
	if s.pdfEngine != nil {
		return s.pdfEngine.Close()
	}
	return nil
}
