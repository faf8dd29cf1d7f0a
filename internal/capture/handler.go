package capture

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/server/middleware"
	"dashboard-backend/internal/shared/server/respond"
)

// DefaultMaxUploadBytes caps /upload bodies.
const DefaultMaxUploadBytes = 10 << 20 // 10MB

// ocr bodies carry base64, which inflates the payload by a third.
const maxOCRBodyBytes = 16 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches capture routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ocr", h.ocr)
	rg.GET("/folders", h.folders)
	rg.POST("/upload", h.upload)
}

func (h *Handler) ocr(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxOCRBodyBytes)

	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.FromError(c, apperr.Validation("capture.ocr", "Image too large"), "Failed to process image")
			return
		}
		respond.FromError(c, apperr.Validation("capture.ocr", "Invalid request body"), "Failed to process image")
		return
	}

	res, err := h.Svc.Analyze(c.Request.Context(), req.Image)
	if err != nil {
		respond.FromError(c, err, "Failed to process image")
		return
	}
	c.Set(middleware.DocumentTypeKey, string(res.DocumentType))
	respond.OK(c, toOCRResponse(res))
}

func (h *Handler) folders(c *gin.Context) {
	docType := strings.TrimSpace(c.Query("documentType"))
	keywords := c.Query("keywords")

	candidates, err := h.Svc.SuggestFolders(c.Request.Context(), docType, keywords)
	if err != nil {
		respond.FromError(c, err, "Failed to get folder suggestions")
		return
	}
	respond.OK(c, toFoldersResponse(candidates))
}

func (h *Handler) upload(c *gin.Context) {
	// Multipart framing needs a little room beyond the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.FromError(c, apperr.Validation("capture.upload", "File too large"), "Failed to upload document")
			return
		}
		respond.FromError(c, apperr.Validation("capture.upload", "No file provided"), "Failed to upload document")
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.FromError(c, apperr.Validation("capture.upload", "File too large"), "Failed to upload document")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.FromError(c, apperr.Validation("capture.upload", "Unable to read file"), "Failed to upload document")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.FromError(c, apperr.Validation("capture.upload", "Unable to read file"), "Failed to upload document")
		return
	}

	// metadata is accepted for client compatibility and not stored.
	res, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Data:     data,
		MimeType: fileHeader.Header.Get("Content-Type"),
		FolderID: strings.TrimSpace(c.PostForm("folderId")),
		OCRText:  c.PostForm("ocrText"),
	})
	if err != nil {
		respond.FromError(c, err, "Failed to upload document")
		return
	}

	c.Set(middleware.FileIDKey, res.FileID)
	respond.OK(c, uploadResponse{
		Success:     true,
		FileID:      res.FileID,
		FileName:    res.FileName,
		WebViewLink: res.WebViewLink,
		FolderName:  res.FolderName,
		Message:     "Document uploaded successfully!",
	})
}
