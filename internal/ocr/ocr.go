// Package ocr supplies recognition results for image resources: parsed
// from the archive's own recognition payload when present, loaded from a
// cached artifact beside the image, or produced by a text recognition
// engine. Results feed the PDF renderer's invisible text layer.
package ocr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Box is a fragment's bounding box, in fractions of the image size
// (0..1). A zero-width box means the source supplied no position; the
// fragment is still searchable, just not placed.
type Box struct {
	X, Y, W, H float64
}

// Fragment is one recognized text run.
type Fragment struct {
	Text       string
	Box        Box
	Confidence float64 // 0-100
}

// Result is the recognition output for one image.
type Result struct {
	Fragments []Fragment
	Text      string // all fragments joined, reading order
	Width     int    // source image width in pixels, 0 if unknown
	Height    int    // source image height in pixels, 0 if unknown
}

// artifactSuffix names the recognition artifact written beside an image.
const artifactSuffix = ".xml"

const artifactPermissions = 0o644

// Engine runs text recognition against raw image bytes.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (*Result, error)
}

// Enricher resolves recognition data for image resources. Recognition
// never fails a note: every failure path degrades to "no text layer for
// this image" with a warning.
type Enricher struct {
	engine Engine
	logger *slog.Logger
}

// NewEnricher creates an Enricher. engine may be nil, in which case only
// archive payloads and cached artifacts are used.
func NewEnricher(engine Engine, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{engine: engine, logger: logger}
}

// Enrich returns recognition data for the image at imagePath. payload is
// the archive-supplied recoIndex XML, empty when the archive had none.
// Resolution order: payload, cached artifact, engine. The result is
// cached beside the image so a resumed run repeats no recognition work.
func (e *Enricher) Enrich(ctx context.Context, imagePath, payload string) *Result {
	artifact := imagePath + artifactSuffix

	if strings.TrimSpace(payload) != "" {
		res, err := ParseRecoIndex([]byte(payload))
		if err != nil {
			e.logger.Warn("discarding malformed recognition payload",
				slog.String("image", filepath.Base(imagePath)),
				slog.String("error", err.Error()))
		} else {
			e.writeArtifact(artifact, []byte(payload))
			return res
		}
	}

	if data, err := os.ReadFile(artifact); err == nil { // #nosec G304 -- pipeline-owned path
		res, err := ParseRecoIndex(data)
		if err == nil {
			return res
		}
		e.logger.Warn("ignoring unreadable recognition artifact",
			slog.String("artifact", filepath.Base(artifact)),
			slog.String("error", err.Error()))
	}

	if e.engine == nil {
		return nil
	}

	image, err := os.ReadFile(imagePath) // #nosec G304 -- pipeline-owned path
	if err != nil {
		e.logger.Warn("cannot read image for recognition",
			slog.String("image", filepath.Base(imagePath)),
			slog.String("error", err.Error()))
		return nil
	}

	res, err := e.engine.Recognize(ctx, image)
	if err != nil {
		e.logger.Warn("recognition failed",
			slog.String("image", filepath.Base(imagePath)),
			slog.String("error", err.Error()))
		return nil
	}
	if res == nil || len(res.Fragments) == 0 {
		return nil
	}

	if data, err := MarshalRecoIndex(res); err == nil {
		e.writeArtifact(artifact, data)
	}
	return res
}

func (e *Enricher) writeArtifact(path string, data []byte) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	if err := os.WriteFile(path, data, artifactPermissions); err != nil {
		e.logger.Warn("cannot cache recognition artifact",
			slog.String("artifact", filepath.Base(path)),
			slog.String("error", err.Error()))
	}
}
