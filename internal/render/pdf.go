package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-enex2all/internal/assets"
	"github.com/alnah/go-enex2all/internal/fileutil"
)

// Sentinel errors for PDF generation.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("failed to generate PDF")
)

// PDFEngine renders a standalone HTML page to PDF bytes.
type PDFEngine interface {
	RenderHTML(ctx context.Context, htmlContent string) ([]byte, error)
	Close() error
}

// Page dimensions in inches (US Letter).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
	marginInches      = 0.5
)

// RodEngine implements PDFEngine with headless Chrome via go-rod. The
// browser launches lazily on first use and is shared across calls, so
// one engine must not be used from multiple goroutines concurrently.
type RodEngine struct {
	browser *rod.Browser
	timeout time.Duration
}

var _ PDFEngine = (*RodEngine)(nil)

// NewRodEngine creates a RodEngine with the given per-page timeout.
func NewRodEngine(timeout time.Duration) *RodEngine {
	return &RodEngine{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (e *RodEngine) ensureBrowser() error {
	if e.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	e.browser = rod.New().ControlURL(u)
	if err := e.browser.Connect(); err != nil {
		e.browser = nil
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (e *RodEngine) Close() error {
	if e.browser != nil {
		err := e.browser.Close()
		e.browser = nil
		return err
	}
	return nil
}

// RenderHTML writes the page to a temp file, opens it in headless Chrome
// and prints it to PDF.
func (e *RodEngine) RenderHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.ensureBrowser(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := e.browser.Page(proto.TargetCreateTarget{URL: "file://" + tmpPath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

// PDFRenderer writes the note's PDF into the note folder and, when
// CleanDir is set, a second copy into the flat PDF collection. Images
// are inlined as data URIs and recognized text is layered invisibly over
// its image so the PDF stays searchable.
type PDFRenderer struct {
	engine PDFEngine
	tmpl   *template.Template
	style  string
}

// NewPDFRenderer loads the embedded PDF page assets.
func NewPDFRenderer(engine PDFEngine) (*PDFRenderer, error) {
	raw, err := assets.LoadTemplate("pdf")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("pdf").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing pdf template: %w", err)
	}
	style, err := assets.LoadStyle("pdf")
	if err != nil {
		return nil, err
	}
	return &PDFRenderer{engine: engine, tmpl: tmpl, style: style}, nil
}

func (r *PDFRenderer) Name() string { return "pdf" }

func (r *PDFRenderer) Render(ctx context.Context, in Input) error {
	body := serializeHTML(in.Doc, serializeOptions{
		inlineImages: true,
		baseDir:      in.NoteDir,
		ocrResults:   in.OCR,
	})
	data := pageData{
		Title:     displayTitle(in.Note.Title),
		Style:     template.CSS(r.style),
		Created:   displayTime(in.Note.Created),
		Tags:      strings.Join(in.Note.Tags, ", "),
		SourceURL: in.Note.SourceURL,
		Body:      template.HTML(body), // #nosec G203 -- serializer escapes all text
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing pdf template: %w", err)
	}

	pdf, err := r.engine.RenderHTML(ctx, buf.String())
	if err != nil {
		return err
	}

	notePath := filepath.Join(in.NoteDir, in.PDFName)
	if err := fileutil.WriteFileIdempotent(notePath, pdf, filePermissions); err != nil {
		return fmt.Errorf("writing note PDF: %w", err)
	}
	if in.CleanDir != "" {
		if err := writeCleanCopy(in.CleanDir, in.PDFName, pdf); err != nil {
			return err
		}
	}
	return nil
}

// writeCleanCopy places the PDF into the flat collection via a temp file
// and rename. A crash must never leave a partial PDF where a later run
// would mistake it for finished output.
func writeCleanCopy(dir, name string, pdf []byte) error {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating clean collection folder: %w", err)
	}
	final := filepath.Join(dir, name)
	if existing, err := os.ReadFile(final); err == nil && bytes.Equal(existing, pdf) { // #nosec G304 -- pipeline-owned path
		return nil
	}
	tmp, err := os.CreateTemp(dir, ".pdf-*")
	if err != nil {
		return fmt.Errorf("creating clean collection temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(pdf); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing clean collection temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing clean collection temp file: %w", err)
	}
	if err := os.Chmod(tmpName, filePermissions); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("setting clean collection file mode: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("moving PDF into clean collection: %w", err)
	}
	return nil
}
