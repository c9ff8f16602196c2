package render

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/alnah/go-enex2all/internal/document"
	"github.com/alnah/go-enex2all/internal/fileutil"
	"github.com/alnah/go-enex2all/internal/yamlutil"
)

// frontMatter is the YAML block prepended to content.md.
type frontMatter struct {
	Title     string   `yaml:"title"`
	Created   string   `yaml:"created,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	SourceURL string   `yaml:"source_url,omitempty"`
}

// MarkdownRenderer writes content.md into the note folder. Constructs
// that Markdown cannot express without loss, such as tables with merged
// cells, fall back to embedded HTML.
type MarkdownRenderer struct {
	addFrontMatter bool
	logger         *slog.Logger
}

func NewMarkdownRenderer(addFrontMatter bool, logger *slog.Logger) *MarkdownRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkdownRenderer{addFrontMatter: addFrontMatter, logger: logger}
}

func (r *MarkdownRenderer) Name() string { return "markdown" }

func (r *MarkdownRenderer) Render(ctx context.Context, in Input) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var b strings.Builder
	if r.addFrontMatter {
		fm, err := r.renderFrontMatter(in)
		if err != nil {
			return err
		}
		b.WriteString(fm)
	}
	b.WriteString("# " + displayTitle(in.Note.Title) + "\n\n")

	w := &mdWriter{logger: r.logger, note: in.Note.Title}
	for _, block := range w.renderBlocks(in.Doc.Nodes) {
		b.WriteString(block)
		b.WriteString("\n\n")
	}
	content := strings.TrimRight(b.String(), "\n") + "\n"

	path := filepath.Join(in.NoteDir, "content.md")
	if err := fileutil.WriteFileIdempotent(path, []byte(content), filePermissions); err != nil {
		return fmt.Errorf("writing content.md: %w", err)
	}
	return nil
}

func (r *MarkdownRenderer) renderFrontMatter(in Input) (string, error) {
	fm := frontMatter{
		Title:     displayTitle(in.Note.Title),
		Created:   displayTime(in.Note.Created),
		Tags:      in.Note.Tags,
		SourceURL: in.Note.SourceURL,
	}
	data, err := yamlutil.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling front matter: %w", err)
	}
	return "---\n" + string(data) + "---\n\n", nil
}

// mdWriter serializes the intermediate tree to Markdown block by block.
type mdWriter struct {
	logger *slog.Logger
	note   string
}

// blockTags start a new Markdown block. Everything else renders inline.
var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "pre": true,
	"ul": true, "ol": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func (w *mdWriter) isBlock(n *document.Node) bool {
	switch n.Kind {
	case document.KindTable, document.KindRaw, document.KindCrypt:
		return true
	case document.KindElement:
		return blockTags[n.Tag]
	}
	return false
}

// renderBlocks splits a node sequence into Markdown blocks. Consecutive
// inline nodes coalesce into one paragraph; a checkbox starts a task
// line that runs until the next checkbox or block.
func (w *mdWriter) renderBlocks(nodes []*document.Node) []string {
	var blocks []string
	var inline strings.Builder
	flush := func() {
		if s := strings.TrimSpace(inline.String()); s != "" {
			blocks = append(blocks, s)
		}
		inline.Reset()
	}
	for i := 0; i < len(nodes); {
		n := nodes[i]
		if n.Kind == document.KindCheckbox {
			flush()
			j := i + 1
			for j < len(nodes) && !w.isBlock(nodes[j]) && nodes[j].Kind != document.KindCheckbox {
				j++
			}
			blocks = append(blocks, "- "+w.taskItem(nodes[i:j]))
			i = j
			continue
		}
		if !w.isBlock(n) {
			inline.WriteString(w.renderInline(n))
			i++
			continue
		}
		flush()
		if b := w.renderBlock(n); b != "" {
			blocks = append(blocks, b)
		}
		i++
	}
	flush()
	return blocks
}

// startsWithCheckbox reports whether a node sequence opens with a todo
// checkbox, the shape checklist lines take in exported markup: one div
// per line, checkbox first, no list around them.
func startsWithCheckbox(nodes []*document.Node) bool {
	return len(nodes) > 0 && nodes[0].Kind == document.KindCheckbox
}

// taskItem renders a checkbox-led node run as task-item text,
// "[x] " followed by the line's content. Callers prepend the list
// marker; without one the checkbox is not a task item to GFM parsers.
func (w *mdWriter) taskItem(nodes []*document.Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(w.renderInline(n))
	}
	return strings.TrimSpace(b.String())
}

func (w *mdWriter) renderBlock(n *document.Node) string {
	switch n.Kind {
	case document.KindTable:
		return w.renderTable(n)
	case document.KindRaw:
		return w.renderRaw(n.Raw)
	case document.KindCrypt:
		return w.renderCrypt(n)
	}

	switch n.Tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Tag[1] - '0')
		return strings.Repeat("#", level) + " " + w.inlineChildren(n)
	case "hr":
		return "---"
	case "blockquote":
		inner := strings.Join(w.renderBlocks(n.Children), "\n\n")
		return "> " + strings.ReplaceAll(inner, "\n", "\n> ")
	case "pre":
		return "```\n" + n.PlainText() + "\n```"
	case "ul":
		return w.renderList(n, false)
	case "ol":
		return w.renderList(n, true)
	default: // p, div
		if startsWithCheckbox(n.Children) {
			return "- " + w.taskItem(n.Children)
		}
		return strings.Join(w.renderBlocks(n.Children), "\n\n")
	}
}

func (w *mdWriter) renderList(n *document.Node, ordered bool) string {
	var lines []string
	idx := 0
	for _, item := range n.Children {
		if item.Kind != document.KindElement || item.Tag != "li" {
			continue
		}
		idx++
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", idx)
		}
		var body string
		if startsWithCheckbox(item.Children) {
			// renderBlocks would add its own "- " marker here.
			body = w.taskItem(item.Children)
		} else {
			body = strings.Join(w.renderBlocks(item.Children), "\n\n")
		}
		body = strings.ReplaceAll(body, "\n", "\n"+strings.Repeat(" ", len(marker)))
		lines = append(lines, marker+body)
	}
	return strings.Join(lines, "\n")
}

func (w *mdWriter) renderTable(n *document.Node) string {
	if n.HasMergedCells() {
		w.logger.Warn("table has merged cells, embedding as HTML",
			"note", w.note)
		return strings.TrimSpace(serializeHTML(
			&document.Document{Nodes: []*document.Node{n}}, serializeOptions{}))
	}

	var rows [][]string
	for _, row := range n.Children {
		if row.Kind != document.KindTableRow {
			continue
		}
		var cells []string
		for _, cell := range row.Children {
			if cell.Kind != document.KindTableCell {
				continue
			}
			text := strings.Join(strings.Fields(cell.PlainText()), " ")
			cells = append(cells, strings.ReplaceAll(text, "|", `\|`))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	pad := func(row []string) []string {
		for len(row) < width {
			row = append(row, "")
		}
		return row
	}

	// Pipe tables need a header row. The first row serves, th or not.
	var b strings.Builder
	b.WriteString("| " + strings.Join(pad(rows[0]), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range rows[1:] {
		b.WriteString("| " + strings.Join(pad(row), " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *mdWriter) renderRaw(raw string) string {
	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil || strings.TrimSpace(md) == "" {
		w.logger.Warn("raw fragment resisted conversion, embedding as code",
			"note", w.note)
		return "```html\n" + strings.TrimSpace(raw) + "\n```"
	}
	return strings.TrimSpace(md)
}

func (w *mdWriter) renderCrypt(n *document.Node) string {
	var b strings.Builder
	b.WriteString("**[Encrypted Content]**")
	if n.Hint != "" {
		b.WriteString(" (hint: " + n.Hint + ")")
	}
	b.WriteString("\n\n```\n" + n.Cipher + "\n```")
	return b.String()
}

func (w *mdWriter) renderInline(n *document.Node) string {
	switch n.Kind {
	case document.KindText:
		return n.Text
	case document.KindFragment:
		return w.inlineChildren(n)
	case document.KindImage:
		return fmt.Sprintf("![%s](%s)", n.Alt, n.Src)
	case document.KindLink:
		label := n.Label
		if label == "" {
			label = n.Href
		}
		return fmt.Sprintf("[%s](%s)", label, n.Href)
	case document.KindCheckbox:
		if n.Checked {
			return "[x] "
		}
		return "[ ] "
	case document.KindElement:
		switch n.Tag {
		case "b":
			return wrapNonEmpty(w.inlineChildren(n), "**")
		case "i":
			return wrapNonEmpty(w.inlineChildren(n), "*")
		case "s":
			return wrapNonEmpty(w.inlineChildren(n), "~~")
		case "code":
			return wrapNonEmpty(w.inlineChildren(n), "`")
		case "u":
			inner := w.inlineChildren(n)
			if inner == "" {
				return ""
			}
			return "<u>" + inner + "</u>"
		case "br":
			return "\n"
		default:
			return w.inlineChildren(n)
		}
	}
	return ""
}

func (w *mdWriter) inlineChildren(n *document.Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(w.renderInline(c))
	}
	return b.String()
}

func wrapNonEmpty(s, marker string) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	return marker + s + marker
}
