// Package enml rewrites a note's raw ENML body into the intermediate
// document tree. Evernote-specific constructs (en-media, en-todo,
// en-crypt) become generic nodes; markup the normalizer does not
// understand is preserved as raw fallback nodes so no content is lost.
package enml

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/alnah/go-enex2all/internal/document"
	"github.com/alnah/go-enex2all/internal/extract"
	"github.com/alnah/go-enex2all/internal/note"
)

// Sentinel errors for normalization.
var (
	ErrUnparsableBody  = errors.New("unparsable note body")
	ErrUnresolvedMedia = errors.New("media reference does not match any extracted resource")
)

// knownTags are elements carried over as generic nodes. Anything else
// becomes a raw fallback node.
var knownTags = map[string]bool{
	"p": true, "div": true, "span": true, "br": true, "hr": true,
	"b": true, "strong": true, "i": true, "em": true, "u": true,
	"s": true, "strike": true, "sub": true, "sup": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true,
	"blockquote": true, "pre": true, "code": true,
	"font": true, "center": true,
}

// transparentTags contribute nothing themselves; their children are
// hoisted into the parent.
var transparentTags = map[string]bool{
	"thead": true, "tbody": true, "tfoot": true, "colgroup": true, "col": true,
}

// Normalizer converts ENML bodies to intermediate documents.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// state tracks per-note counters during one Normalize call.
type state struct {
	resources  note.ResourceMap
	dropped    int
	cryptSeq   int
	unresolved int
}

// Normalize parses body and rewrites it into a document tree, resolving
// media references through the resource map. dropped is the number of
// resources the extractor had to skip: when it is non-zero, unresolved
// references degrade to placeholders instead of failing the note.
func (nz *Normalizer) Normalize(body string, resources note.ResourceMap, dropped int) (*document.Document, error) {
	if strings.TrimSpace(body) == "" {
		return &document.Document{}, nil
	}

	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableBody, err)
	}

	content := findContentRoot(root)
	if content == nil {
		return nil, fmt.Errorf("%w: no en-note element and no body", ErrUnparsableBody)
	}

	st := &state{resources: resources, dropped: dropped}
	doc := &document.Document{}
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		doc.Nodes = append(doc.Nodes, nz.convert(c, st)...)
	}

	if st.unresolved > 0 && st.dropped == 0 {
		// Nothing was dropped during extraction, so a dangling hash means
		// the note itself is inconsistent.
		return nil, fmt.Errorf("%w: %d unresolved reference(s)", ErrUnresolvedMedia, st.unresolved)
	}

	return doc, nil
}

// findContentRoot locates the en-note element, falling back to <body>.
// The html parser tolerates the XML declaration and DOCTYPE that ENML
// bodies carry.
func findContentRoot(root *html.Node) *html.Node {
	var enNote, body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if enNote != nil {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "en-note":
				enNote = n
				return
			case "body":
				body = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if enNote != nil {
		return enNote
	}
	return body
}

// convert translates one parsed node into zero or more document nodes.
func (nz *Normalizer) convert(n *html.Node, st *state) []*document.Node {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		return []*document.Node{{Kind: document.KindText, Text: n.Data}}

	case html.ElementNode:
		switch n.Data {
		// The HTML parser ignores the self-closing slash on non-standard
		// elements, so siblings written after <en-media/> or <en-todo/>
		// arrive as their children. Hoist them back out.
		case "en-media":
			return append(nz.convertMedia(n, st), nz.convertChildren(n, st)...)
		case "en-todo":
			box := &document.Node{
				Kind:    document.KindCheckbox,
				Checked: attr(n, "checked") == "true",
			}
			return append([]*document.Node{box}, nz.convertChildren(n, st)...)
		case "en-crypt":
			st.cryptSeq++
			return []*document.Node{{
				Kind:   document.KindCrypt,
				Cipher: strings.TrimSpace(textContent(n)),
				Hint:   attr(n, "hint"),
				ID:     fmt.Sprintf("crypt-%d", st.cryptSeq),
			}}
		case "a":
			link := &document.Node{
				Kind:  document.KindLink,
				Href:  attr(n, "href"),
				Label: strings.TrimSpace(textContent(n)),
			}
			if link.Label == "" {
				link.Label = link.Href
			}
			return []*document.Node{link}
		case "img":
			// Plain img elements are rare in ENML but legal.
			return []*document.Node{{
				Kind: document.KindImage,
				Src:  attr(n, "src"),
				Alt:  attr(n, "alt"),
			}}
		case "table":
			return []*document.Node{nz.convertTable(n, st)}
		default:
			if transparentTags[n.Data] {
				return nz.convertChildren(n, st)
			}
			if knownTags[n.Data] {
				el := &document.Node{Kind: document.KindElement, Tag: canonicalTag(n.Data)}
				el.Children = nz.convertChildren(n, st)
				return []*document.Node{el}
			}
			return []*document.Node{nz.rawFallback(n)}
		}
	}
	return nil
}

func (nz *Normalizer) convertChildren(n *html.Node, st *state) []*document.Node {
	var out []*document.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, nz.convert(c, st)...)
	}
	return out
}

// convertMedia resolves an en-media reference through the resource map.
func (nz *Normalizer) convertMedia(n *html.Node, st *state) []*document.Node {
	hash := strings.ToLower(attr(n, "hash"))
	ref, ok := st.resources[hash]
	if !ok {
		st.unresolved++
		nz.logger.Warn("unresolved media reference", slog.String("hash", hash))
		return []*document.Node{{
			Kind: document.KindText,
			Text: fmt.Sprintf("[missing attachment %s]", hash),
		}}
	}

	rel := extract.AttachmentsDir + "/" + ref.FileName
	mimeType := ref.Mime
	if declared := attr(n, "type"); declared != "" {
		mimeType = declared
	}

	switch {
	case note.IsImageMime(mimeType):
		return []*document.Node{{
			Kind: document.KindImage,
			Src:  rel,
			Alt:  ref.FileName,
			Mime: mimeType,
		}}
	case mimeType == "application/pdf":
		return []*document.Node{{
			Kind:  document.KindLink,
			Href:  rel,
			Label: ref.FileName,
			Mime:  mimeType,
			Embed: true,
		}}
	default:
		return []*document.Node{{
			Kind:  document.KindLink,
			Href:  rel,
			Label: ref.FileName,
			Mime:  mimeType,
		}}
	}
}

// convertTable builds table structure, preserving colspan/rowspan so the
// renderers can decide per format how to degrade merged cells.
func (nz *Normalizer) convertTable(n *html.Node, st *state) *document.Node {
	table := &document.Node{Kind: document.KindTable}
	var collectRows func(*html.Node)
	collectRows = func(parent *html.Node) {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				table.Children = append(table.Children, nz.convertRow(c, st))
			case "thead", "tbody", "tfoot":
				collectRows(c)
			}
		}
	}
	collectRows(n)
	return table
}

func (nz *Normalizer) convertRow(n *html.Node, st *state) *document.Node {
	row := &document.Node{Kind: document.KindTableRow}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cell := &document.Node{
			Kind:    document.KindTableCell,
			Header:  c.Data == "th",
			ColSpan: spanAttr(c, "colspan"),
			RowSpan: spanAttr(c, "rowspan"),
		}
		cell.Children = nz.convertChildren(c, st)
		row.Children = append(row.Children, cell)
	}
	return row
}

// rawFallback preserves an unknown element verbatim.
func (nz *Normalizer) rawFallback(n *html.Node) *document.Node {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		// Render on an in-memory tree only fails on unknown node types;
		// degrade to the element's text content.
		nz.logger.Warn("could not preserve raw markup", slog.String("tag", n.Data))
		return &document.Node{Kind: document.KindText, Text: textContent(n)}
	}
	nz.logger.Debug("preserved unknown markup as raw fallback", slog.String("tag", n.Data))
	return &document.Node{Kind: document.KindRaw, Raw: b.String()}
}

// canonicalTag maps presentational aliases to their generic equivalent.
func canonicalTag(tag string) string {
	switch tag {
	case "strong":
		return "b"
	case "em":
		return "i"
	case "strike":
		return "s"
	case "font":
		return "span"
	case "center":
		return "div"
	}
	return tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func spanAttr(n *html.Node, key string) int {
	v, err := strconv.Atoi(attr(n, key))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
