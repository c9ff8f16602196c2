// Package enex reads Evernote export archives (.enex) as a stream of
// notes. The file is decoded token by token so large archives never
// need to fit in memory at once.
package enex

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alnah/go-enex2all/internal/note"
)

// ErrMalformedArchive wraps XML decode failures that make the rest of
// the archive unreadable.
var ErrMalformedArchive = errors.New("malformed enex archive")

// enexDateLayout is the timestamp format Evernote writes, e.g. 20230101T120000Z.
const enexDateLayout = "20060102T150405Z"

// Reader yields notes from an ENEX stream in archive order.
type Reader struct {
	dec     *xml.Decoder
	archive string
	seq     int
}

// NewReader creates a Reader over r. archive is recorded on every note
// as part of its identity.
func NewReader(r io.Reader, archive string) *Reader {
	dec := xml.NewDecoder(r)
	// Evernote exports occasionally declare legacy encodings.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	return &Reader{dec: dec, archive: archive}
}

// Next returns the next note in the archive, or io.EOF when exhausted.
// A decode failure mid-archive is fatal to the archive, not recoverable
// per note: the stream position is unknown after a bad token.
func (r *Reader) Next() (*note.Note, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "note" {
			continue
		}

		var raw xmlNote
		if err := r.dec.DecodeElement(&raw, &start); err != nil {
			return nil, fmt.Errorf("%w: note %d: %v", ErrMalformedArchive, r.seq, err)
		}

		n := raw.toNote(r.archive, r.seq)
		r.seq++
		return n, nil
	}
}

// xmlNote mirrors the <note> element of the ENEX schema.
type xmlNote struct {
	Title      string         `xml:"title"`
	Content    string         `xml:"content"`
	Created    string         `xml:"created"`
	Updated    string         `xml:"updated"`
	Tags       []string       `xml:"tag"`
	Attributes *xmlNoteAttrs  `xml:"note-attributes"`
	Resources  []*xmlResource `xml:"resource"`
}

type xmlNoteAttrs struct {
	Author    string `xml:"author"`
	SourceURL string `xml:"source-url"`
}

type xmlResource struct {
	Data        *xmlData          `xml:"data"`
	Mime        string            `xml:"mime"`
	Recognition string            `xml:"recognition"`
	Attributes  *xmlResourceAttrs `xml:"resource-attributes"`
}

type xmlData struct {
	Encoding string `xml:"encoding,attr"`
	Value    string `xml:",chardata"`
}

type xmlResourceAttrs struct {
	FileName string `xml:"file-name"`
}

// toNote converts the raw XML representation into the pipeline model.
// Resources without a data element are dropped here, matching the
// archive format: such entries carry nothing extractable.
func (x *xmlNote) toNote(archive string, seq int) *note.Note {
	n := &note.Note{
		Archive: archive,
		Seq:     seq,
		Title:   strings.TrimSpace(x.Title),
		Content: x.Content,
		Tags:    x.Tags,
		Created: parseDate(x.Created),
		Updated: parseDate(x.Updated),
	}
	if x.Attributes != nil {
		n.Author = x.Attributes.Author
		n.SourceURL = x.Attributes.SourceURL
	}

	for _, res := range x.Resources {
		if res == nil || res.Data == nil || strings.TrimSpace(res.Data.Value) == "" {
			continue
		}
		mime := res.Mime
		if mime == "" {
			mime = "application/octet-stream"
		}
		r := note.Resource{
			Data:        strings.TrimSpace(res.Data.Value),
			Mime:        mime,
			Recognition: strings.TrimSpace(res.Recognition),
		}
		if res.Attributes != nil {
			r.FileName = res.Attributes.FileName
		}
		n.Resources = append(n.Resources, r)
	}
	return n
}

// parseDate parses an ENEX timestamp. Falls back to RFC 3339, then to
// the zero time: a missing date is not an error, notes render as "NoDate".
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(enexDateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
