// Package tesseract runs OCR through the local Tesseract engine. It needs
// cgo and the tesseract/leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"dashboard-backend/internal/shared/telemetry"
)

// Engine implements capture.Recognizer with gosseract.
type Engine struct{}

// New returns an Engine.
func New() *Engine {
	return &Engine{}
}

// Recognize extracts text from image. gosseract clients are not safe for
// concurrent use, so each call gets its own.
func (e *Engine) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			return "", fmt.Errorf("set language %q: %w", language, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	telemetry.Info("ocr.progress", map[string]any{"status": "recognizing text", "language": language})
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR failed: %w", err)
	}
	telemetry.Info("ocr.progress", map[string]any{"status": "done", "chars": len(text)})
	return text, nil
}

// Version reports the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
