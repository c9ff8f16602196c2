package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine on libtesseract via gosseract.
// A fresh client is created per call: the underlying API is stateful and
// not safe to share across goroutines, and callers already bound the
// number of concurrent recognitions with the OCR worker pool.
type TesseractEngine struct {
	lang string
}

// NewTesseractEngine creates an engine for the given language code
// (e.g. "eng", "jpn"). Empty means Tesseract's default.
func NewTesseractEngine(lang string) *TesseractEngine {
	return &TesseractEngine{lang: lang}
}

// Compile-time interface check.
var _ Engine = (*TesseractEngine)(nil)

// Recognize runs Tesseract over the image bytes and returns fragments
// with normalized bounding boxes parsed from the hOCR output.
func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if t.lang != "" {
		if err := client.SetLanguage(t.lang); err != nil {
			return nil, fmt.Errorf("setting language %q: %w", t.lang, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}

	hocr, err := client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseHOCR([]byte(hocr))
}
