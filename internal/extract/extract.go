// Package extract decodes a note's binary attachments, writes them into
// the note's attachments folder, and builds the resource map that the
// markup normalizer resolves media references against. Extraction must
// complete before normalization: references cannot resolve until every
// resource of the note is on disk.
package extract

import (
	"crypto/md5" // #nosec G401 -- Evernote identifies resources by MD5; en-media hashes are MD5 digests
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-enex2all/internal/fileutil"
	"github.com/alnah/go-enex2all/internal/note"
)

// AttachmentsDir is the per-note subfolder holding resource files.
const AttachmentsDir = "note_contents"

// File permission constants.
const (
	dirPermissions  = 0o750
	filePermissions = 0o644
)

// ErrAttachmentsDir wraps failures creating the attachments folder,
// which fail the whole note: nothing can be written without it.
var ErrAttachmentsDir = errors.New("failed to create attachments folder")

// Result is the outcome of extracting one note's resources.
type Result struct {
	// Map resolves content hash to on-disk filename and MIME type.
	Map note.ResourceMap
	// Dropped counts resources whose payload could not be decoded or
	// saved. Their hashes are unknowable, so later unresolved media
	// references degrade to placeholders instead of failing the note.
	Dropped int
	// Recognition holds pre-existing recognition payloads keyed by the
	// resource's on-disk filename, for the OCR enricher to reuse.
	Recognition map[string]string
}

// Extractor writes resources and builds resource maps.
type Extractor struct {
	sanitizeChar string
	logger       *slog.Logger
}

// New creates an Extractor. sanitizeChar replaces unsafe filename
// characters, matching the output folder naming convention.
func New(sanitizeChar string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{sanitizeChar: sanitizeChar, logger: logger}
}

// Extract decodes and writes every resource of one note into
// noteDir/note_contents. A resource that fails to decode is skipped and
// logged; it never fails the note. Writing identical content to an
// existing path is a no-op.
func (e *Extractor) Extract(resources []note.Resource, noteDir string) (Result, error) {
	res := Result{
		Map:         make(note.ResourceMap, len(resources)),
		Recognition: make(map[string]string),
	}
	if len(resources) == 0 {
		return res, nil
	}

	dir := filepath.Join(noteDir, AttachmentsDir)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return res, fmt.Errorf("%w: %v", ErrAttachmentsDir, err)
	}

	used := make(map[string]string, len(resources)) // filename -> hash
	for i, r := range resources {
		data, err := decodePayload(r.Data)
		if err != nil {
			e.logger.Warn("skipping undecodable resource",
				slog.Int("resource", i),
				slog.String("mime", r.Mime),
				slog.String("error", err.Error()))
			res.Dropped++
			continue
		}

		sum := md5.Sum(data) // #nosec G401 -- identity key mandated by the archive format
		hash := hex.EncodeToString(sum[:])

		name := e.fileName(r, hash)
		if prevHash, taken := used[name]; taken && prevHash != hash {
			// Same declared name, different content: disambiguate by hash.
			name = hash[:8] + "_" + name
		}

		path := filepath.Join(dir, name)
		if err := fileutil.WriteFileIdempotent(path, data, filePermissions); err != nil {
			e.logger.Warn("skipping unwritable resource",
				slog.String("file", name),
				slog.String("error", err.Error()))
			res.Dropped++
			continue
		}

		used[name] = hash
		res.Map[hash] = note.ResourceRef{FileName: name, Mime: r.Mime}
		if r.Recognition != "" {
			res.Recognition[name] = r.Recognition
		}
	}

	return res, nil
}

// fileName derives the on-disk name: the declared filename when present,
// otherwise the content hash with an extension inferred from the MIME type.
func (e *Extractor) fileName(r note.Resource, hash string) string {
	if r.FileName != "" {
		if name := fileutil.SanitizeName(r.FileName, e.sanitizeChar); name != "" {
			return name
		}
	}
	return hash + extensionFor(r.Mime)
}

// extensionFor picks a file extension for a MIME type, defaulting to .bin.
func extensionFor(mimeType string) string {
	// Prefer the conventional extensions for common note attachments;
	// mime.ExtensionsByType ordering is platform-dependent.
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "application/pdf":
		return ".pdf"
	}
	exts, err := mime.ExtensionsByType(mimeType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// decodePayload decodes the base64 body of a resource. ENEX wraps the
// payload in whitespace and line breaks, which the standard decoder rejects.
func decodePayload(b64 string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, b64)
	if clean == "" {
		return nil, errors.New("empty payload")
	}
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		// Some exporters omit padding.
		data, err = base64.RawStdEncoding.DecodeString(clean)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	return data, nil
}
