package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-enex2all/internal/document"
	"github.com/alnah/go-enex2all/internal/ocr"
)

// serializeOptions controls how the shared HTML serializer depicts the
// intermediate tree. The HTML and PDF renderers derive different HTML
// from the same document without mutating it.
type serializeOptions struct {
	// inlineImages embeds image files as data URIs. The PDF renderer
	// needs this: the page is rendered from a temp file outside the
	// note folder, so relative paths would dangle.
	inlineImages bool
	// baseDir is the note folder, for reading images when inlining.
	baseDir string
	// ocrResults keys recognition results by image path relative to the
	// note folder. Images with a result get an invisible text overlay.
	ocrResults map[string]*ocr.Result
	// embedObjects renders embeddable attachment links (PDFs) as
	// <object> previews with a download fallback.
	embedObjects bool
	// highlightRaw renders a raw fallback fragment for display. nil
	// means escape it into a <pre> block.
	highlightRaw func(raw string) (string, error)
}

// voidTags render without a closing tag.
var voidTags = map[string]bool{"br": true, "hr": true}

// serializeHTML renders the intermediate tree to an HTML fragment.
func serializeHTML(doc *document.Document, opts serializeOptions) string {
	var b strings.Builder
	for _, n := range doc.Nodes {
		writeNode(&b, n, opts)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *document.Node, opts serializeOptions) {
	switch n.Kind {
	case document.KindText:
		b.WriteString(html.EscapeString(n.Text))

	case document.KindFragment:
		writeChildren(b, n, opts)

	case document.KindElement:
		if voidTags[n.Tag] {
			fmt.Fprintf(b, "<%s/>", n.Tag)
			return
		}
		fmt.Fprintf(b, "<%s>", n.Tag)
		writeChildren(b, n, opts)
		fmt.Fprintf(b, "</%s>", n.Tag)

	case document.KindImage:
		writeImage(b, n, opts)

	case document.KindLink:
		writeLink(b, n, opts)

	case document.KindCheckbox:
		if n.Checked {
			b.WriteString(`<input type="checkbox" checked="checked" disabled="disabled"/>`)
		} else {
			b.WriteString(`<input type="checkbox" disabled="disabled"/>`)
		}

	case document.KindTable:
		b.WriteString("<table>")
		writeChildren(b, n, opts)
		b.WriteString("</table>")

	case document.KindTableRow:
		b.WriteString("<tr>")
		writeChildren(b, n, opts)
		b.WriteString("</tr>")

	case document.KindTableCell:
		tag := "td"
		if n.Header {
			tag = "th"
		}
		b.WriteString("<" + tag)
		if n.ColSpan > 1 {
			fmt.Fprintf(b, ` colspan="%d"`, n.ColSpan)
		}
		if n.RowSpan > 1 {
			fmt.Fprintf(b, ` rowspan="%d"`, n.RowSpan)
		}
		b.WriteString(">")
		writeChildren(b, n, opts)
		b.WriteString("</" + tag + ">")

	case document.KindCrypt:
		// Fixed attribute names consumed by the decrypt script.
		fmt.Fprintf(b,
			`<div class="en-crypt-container" id="%s" data-hint="%s" data-cipher="%s">`,
			html.EscapeString(n.ID), html.EscapeString(n.Hint), html.EscapeString(n.Cipher))
		b.WriteString(`<span class="en-crypt-fallback">[Encrypted Content]</span></div>`)

	case document.KindRaw:
		writeRaw(b, n.Raw, opts)
	}
}

func writeChildren(b *strings.Builder, n *document.Node, opts serializeOptions) {
	for _, c := range n.Children {
		writeNode(b, c, opts)
	}
}

func writeImage(b *strings.Builder, n *document.Node, opts serializeOptions) {
	src := n.Src
	if opts.inlineImages {
		if uri, err := dataURI(filepath.Join(opts.baseDir, filepath.FromSlash(n.Src)), n.Mime); err == nil {
			src = uri
		}
	}
	img := fmt.Sprintf(`<img src="%s" alt="%s"/>`, html.EscapeString(src), html.EscapeString(n.Alt))

	res := opts.ocrResults[n.Src]
	if res == nil {
		b.WriteString(img)
		return
	}

	b.WriteString(`<figure class="ocr-figure">`)
	b.WriteString(img)
	for _, frag := range res.Fragments {
		if frag.Box.W <= 0 || frag.Box.H <= 0 {
			continue
		}
		fmt.Fprintf(b,
			`<span class="ocr-word" style="left:%.2f%%;top:%.2f%%;width:%.2f%%;height:%.2f%%;">%s</span>`,
			frag.Box.X*100, frag.Box.Y*100, frag.Box.W*100, frag.Box.H*100,
			html.EscapeString(frag.Text))
	}
	// Fragments without positions stay searchable in a hidden run.
	var unplaced []string
	for _, frag := range res.Fragments {
		if frag.Box.W <= 0 || frag.Box.H <= 0 {
			unplaced = append(unplaced, frag.Text)
		}
	}
	if len(unplaced) > 0 {
		fmt.Fprintf(b, `<div class="ocr-hidden">%s</div>`, html.EscapeString(strings.Join(unplaced, " ")))
	}
	b.WriteString("</figure>")
}

func writeLink(b *strings.Builder, n *document.Node, opts serializeOptions) {
	href := html.EscapeString(n.Href)
	label := html.EscapeString(n.Label)
	if n.Embed && opts.embedObjects {
		fmt.Fprintf(b,
			`<object data="%s" type="%s" width="100%%" height="600px"><p>PDF cannot be displayed. <a href="%s">Download %s</a></p></object>`,
			href, html.EscapeString(n.Mime), href, label)
		return
	}
	fmt.Fprintf(b, `<a href="%s">%s</a>`, href, label)
}

func writeRaw(b *strings.Builder, raw string, opts serializeOptions) {
	if opts.highlightRaw != nil {
		if highlighted, err := opts.highlightRaw(raw); err == nil {
			b.WriteString(`<div class="raw-fallback">`)
			b.WriteString(highlighted)
			b.WriteString(`</div>`)
			return
		}
	}
	b.WriteString(`<div class="raw-fallback"><pre>`)
	b.WriteString(html.EscapeString(raw))
	b.WriteString(`</pre></div>`)
}

// dataURI reads a file and encodes it as a data URI.
func dataURI(path, mimeType string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- pipeline-owned path
	if err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
