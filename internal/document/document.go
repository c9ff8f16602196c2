// Package document holds the format-neutral tree produced by the markup
// normalizer and consumed read-only by every renderer. No node carries
// anything specific to one output format; a renderer that cannot express
// a node decides its own fallback.
package document

import "strings"

// Kind discriminates node variants.
type Kind uint8

const (
	// KindFragment groups children without semantics of its own.
	KindFragment Kind = iota
	// KindText is a literal text run.
	KindText
	// KindElement is a generic block or inline element kept by tag name
	// (p, div, h1..h6, ul, ol, li, b, i, code, ...).
	KindElement
	// KindImage references a file in the note's attachments folder.
	KindImage
	// KindLink is a named link, usually to an attachment.
	KindLink
	// KindCheckbox is a checklist marker with a checked state.
	KindCheckbox
	// KindTable, KindTableRow and KindTableCell form table structure.
	KindTable
	KindTableRow
	KindTableCell
	// KindCrypt is the opaque placeholder for an encrypted span. It
	// carries ciphertext and hint; depicting it is the renderer's job.
	KindCrypt
	// KindRaw preserves markup the normalizer did not understand, so no
	// note content is silently lost.
	KindRaw
)

// Node is one node of the intermediate tree. Only the fields relevant
// to its Kind are set.
type Node struct {
	Kind     Kind
	Children []*Node

	Tag  string // KindElement
	Text string // KindText

	Src string // KindImage: path relative to the note folder
	Alt string // KindImage

	Href  string // KindLink: path relative to the note folder, or external URL
	Label string // KindLink
	Mime  string // KindLink/KindImage: MIME type of the referenced attachment
	Embed bool   // KindLink: renderers may inline the target (PDF attachments)

	Checked bool // KindCheckbox

	ColSpan int  // KindTableCell
	RowSpan int  // KindTableCell
	Header  bool // KindTableCell originating from <th>

	Cipher string // KindCrypt: base64 ciphertext, exactly as in the source
	Hint   string // KindCrypt
	ID     string // KindCrypt: stable identifier within the note

	Raw string // KindRaw: original markup fragment
}

// Document is the root of the intermediate tree.
type Document struct {
	Nodes []*Node
}

// Walk visits every node depth first. Returning false from fn skips the
// node's children.
func (d *Document) Walk(fn func(*Node) bool) {
	for _, n := range d.Nodes {
		n.walk(fn)
	}
}

func (n *Node) walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// PlainText flattens the subtree to its text content. Used by renderers
// that need a single-line representation, e.g. Markdown table cells.
func (n *Node) PlainText() string {
	var b strings.Builder
	n.walk(func(m *Node) bool {
		switch m.Kind {
		case KindText:
			b.WriteString(m.Text)
		case KindCheckbox:
			if m.Checked {
				b.WriteString("[x]")
			} else {
				b.WriteString("[ ]")
			}
		case KindImage:
			b.WriteString(m.Alt)
		case KindLink:
			b.WriteString(m.Label)
		}
		return true
	})
	return strings.TrimSpace(b.String())
}

// HasMergedCells reports whether a table uses colspan or rowspan greater
// than one anywhere. Such tables cannot be expressed as a pipe table.
func (n *Node) HasMergedCells() bool {
	merged := false
	n.walk(func(m *Node) bool {
		if m.Kind == KindTableCell && (m.ColSpan > 1 || m.RowSpan > 1) {
			merged = true
			return false
		}
		return true
	})
	return merged
}
