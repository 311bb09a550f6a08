// Package ocr implements image text recognition using the Tesseract
// engine via gosseract.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes text in image files. Each Recognize call
// creates its own gosseract client; the underlying Tesseract API is
// not safe for concurrent use on a shared handle.
type TesseractEngine struct {
	languages string
}

// NewTesseractEngine creates an engine recognizing the given languages
// (ISO 639-2 codes, e.g. "eng", "deu"). An empty list falls back to
// English.
func NewTesseractEngine(languages []string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: strings.Join(languages, "+")}
}

// Recognize extracts text from the image at the given path, returning
// the text and the mean line confidence in [0, 1].
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(strings.Split(e.languages, "+")...); err != nil {
		return "", 0, fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", 0, fmt.Errorf("failed to load image %q: %w", imagePath, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("text recognition failed for %q: %w", imagePath, err)
	}

	confidence := meanConfidence(client)
	return text, confidence, nil
}

// meanConfidence averages per-line recognition confidence. A failure
// here only degrades observability, so it yields zero instead of an
// error.
func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return 0
	}

	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	// gosseract reports confidence as a percentage.
	return sum / float64(len(boxes)) / 100.0
}
