// Package note defines the data model shared by every pipeline stage:
// the parsed note, its binary resources, and the per-note resource map
// built by extraction and consumed by normalization.
package note

import (
	"strings"
	"time"
)

// Note is one logical document from an export archive. It is constructed
// once by the archive loader and never mutated afterwards; every renderer
// reads the same instance.
type Note struct {
	Archive   string // source archive path
	Seq       int    // position within the archive, starting at 0
	Title     string // may be empty; callers substitute "Untitled"
	Created   time.Time
	Updated   time.Time
	Tags      []string
	Author    string
	SourceURL string
	Content   string // raw ENML body, as found in the archive
	Resources []Resource
}

// Resource is a binary attachment owned by exactly one note.
// Data holds the payload still base64-encoded; decoding is the
// extractor's job so a corrupt payload degrades one resource,
// not the archive parse.
type Resource struct {
	Data        string // base64 payload
	Mime        string // declared MIME type
	FileName    string // declared file-name, may be empty
	Recognition string // raw recoIndex XML supplied by the archive, may be empty
}

// IsImage reports whether the resource declares an image MIME type.
func (r Resource) IsImage() bool {
	return IsImageMime(r.Mime)
}

// ResourceRef is one entry of a note's resource map.
type ResourceRef struct {
	FileName string // final on-disk name inside the attachments folder
	Mime     string
}

// IsImage reports whether the mapped resource is an image.
func (r ResourceRef) IsImage() bool {
	return IsImageMime(r.Mime)
}

// IsImageMime reports whether a MIME type names an image format.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// ResourceMap maps the content hash of a decoded payload (hex MD5, the
// identity Evernote uses in en-media references) to its on-disk filename.
// Scoped to a single note; built before normalization runs.
type ResourceMap map[string]ResourceRef
