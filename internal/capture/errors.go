package capture

import "errors"

var (
	// ErrNoTextLayer is returned for PDFs without extractable text.
	ErrNoTextLayer = errors.New("pdf has no text layer")
	// ErrUnsupportedType is returned for uploads outside the allowed MIME types.
	ErrUnsupportedType = errors.New("invalid file type. Only JPEG and PNG are allowed")
)
