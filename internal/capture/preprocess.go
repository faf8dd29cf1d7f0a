package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"

	"dashboard-backend/internal/shared/apperr"
)

// DefaultMaxWidth is the widest image handed to OCR; wider captures are
// downscaled first. 2480px is an A4 page at 300 DPI.
const DefaultMaxWidth = 2480

const sharpenSigma = 1.0

var dataURLHeader = regexp.MustCompile(`^data:([\w.+-]+/[\w.+-]+);base64,`)

// DecodePayload strips an optional data URL header and base64-decodes the rest.
func DecodePayload(payload string) (CapturedImage, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return CapturedImage{}, apperr.Validation("capture.decode", "No image data provided")
	}

	mimeType := ""
	if m := dataURLHeader.FindStringSubmatch(payload); m != nil {
		mimeType = strings.ToLower(m[1])
		payload = payload[len(m[0]):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients drop padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return CapturedImage{}, apperr.Processing("capture.decode", fmt.Errorf("decode base64: %w", err))
	}
	if len(data) == 0 {
		return CapturedImage{}, apperr.Processing("capture.decode", errors.New("empty payload"))
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	return CapturedImage{Data: data, MimeType: mimeType}, nil
}

// Preprocessor prepares raster images for OCR.
type Preprocessor struct {
	MaxWidth int
}

// Preprocess runs the default pipeline.
func Preprocess(img []byte) ([]byte, error) {
	return Preprocessor{MaxWidth: DefaultMaxWidth}.Process(img)
}

// Process downscales oversize images, then applies grayscale, contrast
// normalization and sharpening in that order. Output is PNG.
func (p Preprocessor) Process(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Processing("capture.preprocess", fmt.Errorf("decode image: %w", err))
	}

	maxWidth := p.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if src.Bounds().Dx() > maxWidth {
		src = resize.Resize(uint(maxWidth), 0, src, resize.Lanczos3)
	}

	gray := imaging.Grayscale(src)
	normalized := normalize(gray)
	sharp := imaging.Sharpen(normalized, sharpenSigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sharp, imaging.PNG); err != nil {
		return nil, apperr.Processing("capture.preprocess", fmt.Errorf("encode png: %w", err))
	}
	return buf.Bytes(), nil
}

// normalize stretches the luminance range of a grayscale image to 0..255.
func normalize(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	lo, hi := uint8(255), uint8(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.NRGBAAt(x, y).R
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo || (lo == 0 && hi == 255) {
		return img
	}

	span := float64(hi - lo)
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			v := uint8((float64(px.R-lo)*255.0)/span + 0.5)
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: px.A})
		}
	}
	return out
}
