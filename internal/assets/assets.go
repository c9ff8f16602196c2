// Package assets embeds the static files the renderers ship with every
// note folder: the browser-side decrypt support pair, the note HTML
// template, and the default stylesheet.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sentinel errors for asset loading.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrStaticNotFound   = errors.New("static asset not found")
)

// StaticDirName is the subfolder inside each note folder that receives
// the decrypt-support files.
const StaticDirName = "lib"

// staticFiles are copied verbatim into every note folder that contains
// an encrypted block placeholder. decrypt_note.js consumes the
// data-cipher/data-hint attributes the HTML renderer emits; the pipeline
// guarantees nothing about the script beyond copying it.
var staticFiles = []string{"crypto-js.min.js", "decrypt_note.js"}

const (
	staticDirPermissions  = 0o750
	staticFilePermissions = 0o644
)

// StaticFiles returns the names of the decrypt-support files.
func StaticFiles() []string {
	out := make([]string, len(staticFiles))
	copy(out, staticFiles)
	return out
}

// CopyStatic writes the decrypt-support files into dir/lib, verbatim
// from the embedded bundle.
func CopyStatic(dir string) error {
	target := filepath.Join(dir, StaticDirName)
	if err := os.MkdirAll(target, staticDirPermissions); err != nil {
		return fmt.Errorf("creating static asset folder: %w", err)
	}
	for _, name := range staticFiles {
		data, err := static.ReadFile("static/" + name)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrStaticNotFound, name)
		}
		if err := os.WriteFile(filepath.Join(target, name), data, staticFilePermissions); err != nil {
			return fmt.Errorf("copying %s: %w", name, err)
		}
	}
	return nil
}
