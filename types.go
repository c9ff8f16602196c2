package enex2all

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alnah/go-enex2all/internal/ocr"
	"github.com/alnah/go-enex2all/internal/render"
)

// Format names one output a Service can produce for a note.
type Format string

// Output format constants.
const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatHTML:
		return FormatHTML, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// ParseFormats validates a list of format names, rejecting an empty list.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return nil, ErrNoFormats
	}
	formats := make([]Format, 0, len(names))
	seen := make(map[Format]bool, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// NoteTarget names where one note's output goes.
type NoteTarget struct {
	Dir      string // the note's folder, created if missing
	CleanDir string // the note's folder inside the flat PDF collection, empty to skip the copy
	PDFName  string // PDF filename, defaults to the note folder's base name + ".pdf"
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout        time.Duration
	formats        []Format
	addFrontMatter bool
	sanitizeChar   string
	ocrEnabled     bool
	ocrLanguage    string
	logger         *slog.Logger
}

// defaultTimeout bounds the work spent on a single note.
const defaultTimeout = 2 * time.Minute

// WithTimeout sets the per-note conversion timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("enex2all: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithFormats selects which outputs to produce. Defaults to all three.
func WithFormats(formats ...Format) Option {
	return func(s *Service) {
		s.cfg.formats = formats
	}
}

// WithFrontMatter controls the YAML front matter block in content.md.
func WithFrontMatter(enabled bool) Option {
	return func(s *Service) {
		s.cfg.addFrontMatter = enabled
	}
}

// WithSanitizeChar sets the replacement for characters unsafe in file
// names. Defaults to "_".
func WithSanitizeChar(c string) Option {
	return func(s *Service) {
		s.cfg.sanitizeChar = c
	}
}

// WithOCR enables or disables text recognition for PDF-bound images and
// sets the Tesseract language code.
func WithOCR(enabled bool, language string) Option {
	return func(s *Service) {
		s.cfg.ocrEnabled = enabled
		s.cfg.ocrLanguage = language
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.cfg.logger = logger
	}
}

// WithOCREngine injects a recognition engine, replacing the Tesseract
// default. Used by tests and by callers with their own engine.
func WithOCREngine(engine ocr.Engine) Option {
	return func(s *Service) {
		s.ocrEngine = engine
	}
}

// WithPDFEngine injects an HTML-to-PDF engine, replacing the headless
// Chrome default. Used by tests.
func WithPDFEngine(engine render.PDFEngine) Option {
	return func(s *Service) {
		s.pdfEngine = engine
	}
}

// WithOCRLimiter shares a recognition concurrency limiter across
// services. Each recognition job holds one slot for its duration.
func WithOCRLimiter(sem chan struct{}) Option {
	return func(s *Service) {
		s.ocrSem = sem
	}
}
