package capture

import "context"

// DefaultLanguage is the OCR language when none is configured.
const DefaultLanguage = "eng"

// Recognizer turns a preprocessed raster image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte, language string) (string, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	return f(ctx, image, language)
}
