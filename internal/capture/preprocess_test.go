package capture

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"dashboard-backend/internal/shared/apperr"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(100 + (x*50)/w), G: 120, B: 140, A: 255})
		}
	}
	return img
}

func TestDecodePayload(t *testing.T) {
	raw := encodePNG(t, testImage(4, 4))
	b64 := base64.StdEncoding.EncodeToString(raw)

	t.Run("data url", func(t *testing.T) {
		img, err := DecodePayload("data:image/png;base64," + b64)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if img.MimeType != "image/png" || !bytes.Equal(img.Data, raw) {
			t.Fatalf("unexpected image: %s %d bytes", img.MimeType, len(img.Data))
		}
	})

	t.Run("bare base64 sniffs type", func(t *testing.T) {
		img, err := DecodePayload(b64)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if img.MimeType != "image/png" {
			t.Fatalf("expected sniffed image/png, got %s", img.MimeType)
		}
	})

	t.Run("pdf data url", func(t *testing.T) {
		img, err := DecodePayload("data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !img.IsPDF() {
			t.Fatalf("expected pdf, got %s", img.MimeType)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := DecodePayload("   ")
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("undecodable", func(t *testing.T) {
		_, err := DecodePayload("data:image/png;base64,!!!not-base64!!!")
		if apperr.KindOf(err) != apperr.KindProcessing {
			t.Fatalf("expected processing error, got %v", err)
		}
	})
}

func TestPreprocessProducesGrayscalePNG(t *testing.T) {
	out, err := Preprocess(encodePNG(t, testImage(16, 8)))
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "png" {
		t.Fatalf("expected png, got %s", format)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r != g || g != bl {
				t.Fatalf("pixel (%d,%d) not gray: %d %d %d", x, y, r, g, bl)
			}
		}
	}
}

func TestPreprocessDownscalesWideImages(t *testing.T) {
	out, err := Preprocessor{MaxWidth: 100}.Process(encodePNG(t, testImage(400, 40)))
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 10 {
		t.Fatalf("expected 100x10, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPreprocessRejectsNonImage(t *testing.T) {
	_, err := Preprocess([]byte("definitely not an image"))
	if apperr.KindOf(err) != apperr.KindProcessing {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestNormalizeStretchesRange(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 150, G: 150, B: 150, A: 255})

	out := normalize(img)
	if got := out.NRGBAAt(0, 0).R; got != 0 {
		t.Fatalf("expected darkest pixel at 0, got %d", got)
	}
	if got := out.NRGBAAt(1, 0).R; got != 255 {
		t.Fatalf("expected brightest pixel at 255, got %d", got)
	}
}

func TestExtractPDFTextRejectsGarbage(t *testing.T) {
	_, err := ExtractPDFText([]byte("not a pdf at all"))
	if apperr.KindOf(err) != apperr.KindProcessing {
		t.Fatalf("expected processing error, got %v", err)
	}
}
