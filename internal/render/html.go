package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/go-enex2all/internal/assets"
	"github.com/alnah/go-enex2all/internal/fileutil"
)

// pageData feeds the note and pdf page templates.
type pageData struct {
	Title     string
	Style     template.CSS
	Created   string
	Tags      string
	SourceURL string
	Body      template.HTML
}

// HTMLRenderer writes index.html into the note folder alongside the
// decrypt-support scripts the page links.
type HTMLRenderer struct {
	tmpl  *template.Template
	style string
}

// NewHTMLRenderer loads the embedded page template and stylesheet.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	raw, err := assets.LoadTemplate("note")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("note").Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing note template: %w", err)
	}
	style, err := assets.LoadStyle("note")
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl, style: style}, nil
}

func (r *HTMLRenderer) Name() string { return "html" }

func (r *HTMLRenderer) Render(ctx context.Context, in Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := serializeHTML(in.Doc, serializeOptions{
		embedObjects: true,
		highlightRaw: highlightRaw,
	})
	page, err := r.renderPage(in, body)
	if err != nil {
		return err
	}
	path := filepath.Join(in.NoteDir, "index.html")
	if err := fileutil.WriteFileIdempotent(path, page, filePermissions); err != nil {
		return fmt.Errorf("writing index.html: %w", err)
	}
	// The page template references both support scripts unconditionally,
	// so every note folder gets them, encrypted blocks or not.
	if err := assets.CopyStatic(in.NoteDir); err != nil {
		return err
	}
	return nil
}

func (r *HTMLRenderer) renderPage(in Input, body string) ([]byte, error) {
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
		return nil, fmt.Errorf("executing note template: %w", err)
	}
	return buf.Bytes(), nil
}

// highlightRaw renders an unconvertible markup fragment with XML syntax
// highlighting so it stays legible instead of collapsing into a wall of
// escaped angle brackets.
func highlightRaw(raw string) (string, error) {
	lexer := lexers.Get("xml")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}
	iterator, err := lexer.Tokenise(nil, raw)
	if err != nil {
		return "", err
	}
	formatter := html.New(html.WithClasses(false), html.PreventSurroundingPre(false))
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
