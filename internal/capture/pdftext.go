package capture

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"dashboard-backend/internal/shared/apperr"
)

// ExtractPDFText returns the embedded text layer of a PDF.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Processing("capture.pdf", fmt.Errorf("open pdf: %w", err))
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", apperr.Processing("capture.pdf", fmt.Errorf("read pdf text: %w", err))
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", apperr.Processing("capture.pdf", fmt.Errorf("read pdf text: %w", err))
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", apperr.Processing("capture.pdf", ErrNoTextLayer)
	}
	return text, nil
}
