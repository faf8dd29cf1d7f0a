package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/metrics"
	"dashboard-backend/internal/shared/telemetry"
)

const (
	// RootFolderName is reported when an upload lands outside a named folder.
	RootFolderName = "My Drive"
	// MaxDescriptionChars bounds the OCR excerpt stored as a file description.
	MaxDescriptionChars = 1000
)

var allowedUploadTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/jpg":  {},
}

var tracer = otel.Tracer("dashboard-backend/capture")

// Service runs OCR, folder suggestion and ad hoc uploads.
type Service struct {
	Store        cloudstore.Store
	OCR          Recognizer
	Language     string
	Preprocessor Preprocessor
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) language() string {
	if s.Language != "" {
		return s.Language
	}
	return DefaultLanguage
}

// Analyze decodes a payload, extracts its text and classifies it.
func (s *Service) Analyze(ctx context.Context, payload string) (res Analysis, err error) {
	ctx, span := tracer.Start(ctx, "capture.analyze")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	img, err := DecodePayload(payload)
	if err != nil {
		return Analysis{}, err
	}
	span.SetAttributes(attribute.String("capture.mime_type", img.MimeType), attribute.Int("capture.bytes", len(img.Data)))

	metrics.IncOCRRequest()
	start := time.Now()
	text, err := s.extract(ctx, img)
	metrics.ObserveOCRDurationMs(metrics.SinceMillis(start))
	if err != nil {
		metrics.IncOCRFailed()
		return Analysis{}, err
	}

	res = Analysis{
		ExtractedText: ExtractedText{Text: strings.TrimSpace(text), Confidence: PlaceholderConfidence},
		Keywords:      ExtractKeywords(text),
		DocumentType:  Classify(text),
	}
	span.SetAttributes(attribute.String("capture.document_type", string(res.DocumentType)))
	telemetry.Info("capture.ocr.complete", map[string]any{
		"mime_type":     img.MimeType,
		"chars":         utf8.RuneCountInString(res.Text),
		"keywords":      len(res.Keywords),
		"document_type": string(res.DocumentType),
		"duration_ms":   metrics.SinceMillis(start),
	})
	return res, nil
}

func (s *Service) extract(ctx context.Context, img CapturedImage) (string, error) {
	if img.IsPDF() {
		return ExtractPDFText(img.Data)
	}
	processed, err := s.Preprocessor.Process(img.Data)
	if err != nil {
		return "", err
	}
	if s.OCR == nil {
		return "", apperr.Upstream("capture.ocr", errors.New("ocr engine not configured"))
	}
	telemetry.Info("capture.ocr.start", map[string]any{"language": s.language(), "bytes": len(processed)})
	text, err := s.OCR.Recognize(ctx, processed, s.language())
	if err != nil {
		return "", apperr.Upstream("capture.ocr", err)
	}
	return text, nil
}

// SuggestFolders ranks every folder the store can list against the document
// type and comma-separated keywords. Nested folders are candidates too, not
// only top-level ones, so a deep "Invoices/2026" folder can win outright.
func (s *Service) SuggestFolders(ctx context.Context, docType, keywords string) ([]FolderCandidate, error) {
	ctx, span := tracer.Start(ctx, "capture.suggest_folders")
	defer span.End()

	metrics.IncSuggestion()
	folders, err := s.Store.ListFolders(ctx, cloudstore.FolderQuery{})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Upstream("capture.folders", err)
	}
	span.SetAttributes(attribute.Int("capture.folders", len(folders)))
	return RankFolders(folders, docType, keywords), nil
}

// Upload stores a capture as-is in the chosen folder, or the store root.
func (s *Service) Upload(ctx context.Context, in UploadInput) (res UploadResult, err error) {
	ctx, span := tracer.Start(ctx, "capture.upload")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(in.Data) == 0 {
		return UploadResult{}, apperr.Validation("capture.upload", "No file provided")
	}
	if _, ok := allowedUploadTypes[strings.ToLower(in.MimeType)]; !ok {
		return UploadResult{}, apperr.Validation("capture.upload", "Invalid file type. Only JPEG and PNG are allowed.")
	}

	now := s.now()
	spec := cloudstore.FileSpec{
		Name:     ScanFileName(now),
		MimeType: in.MimeType,
		ParentID: in.FolderID,
	}
	if in.OCRText != "" {
		spec.Description = OCRDescription(in.OCRText)
	}

	file, err := s.Store.CreateFile(ctx, spec, bytes.NewReader(in.Data))
	if err != nil {
		return UploadResult{}, apperr.Upstream("capture.upload", err)
	}
	metrics.IncUpload()

	folderName := RootFolderName
	if in.FolderID != "" {
		folder, err := s.Store.GetFile(ctx, in.FolderID)
		if err != nil {
			telemetry.Warn("capture.upload.folder_name", map[string]any{"folder_id": in.FolderID, "error": err.Error()})
		} else {
			folderName = folder.Name
		}
	}

	return UploadResult{
		FileID:      file.ID,
		FileName:    file.Name,
		WebViewLink: file.WebViewLink,
		FolderName:  folderName,
	}, nil
}

// ScanFileName names an ad hoc capture: Scan_<YYYY-MM-DD>_<epoch-millis>.jpg.
func ScanFileName(now time.Time) string {
	return fmt.Sprintf("Scan_%s_%d.jpg", now.UTC().Format("2006-01-02"), now.UnixMilli())
}

// OCRDescription embeds up to MaxDescriptionChars of text.
func OCRDescription(text string) string {
	if utf8.RuneCountInString(text) > MaxDescriptionChars {
		text = string([]rune(text)[:MaxDescriptionChars])
	}
	return "OCR Text: " + text + "..."
}
