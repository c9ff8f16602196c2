// Package render turns one intermediate document into the three output
// formats. The renderers are independent: they share the document and
// note metadata, never each other's output, and one renderer's failure
// does not block the others.
package render

import (
	"context"
	"time"

	"github.com/alnah/go-enex2all/internal/document"
	"github.com/alnah/go-enex2all/internal/note"
	"github.com/alnah/go-enex2all/internal/ocr"
)

// Input carries everything a renderer needs for one note.
type Input struct {
	Note    *note.Note
	Doc     *document.Document
	NoteDir string // the note's output folder

	// PDF renderer only.
	CleanDir string                 // this note's folder in the clean PDF collection
	PDFName  string                 // canonical PDF filename
	OCR      map[string]*ocr.Result // recognition results keyed by image path relative to NoteDir
}

// Renderer produces one output format for a note.
type Renderer interface {
	Name() string
	Render(ctx context.Context, in Input) error
}

// File permission constants.
const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

// displayTime formats a timestamp for human-readable output, empty for
// the zero time.
func displayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

// displayTitle substitutes a placeholder for empty titles.
func displayTitle(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}
