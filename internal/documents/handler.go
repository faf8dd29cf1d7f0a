package documents

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/server/middleware"
	"dashboard-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = maxUploadSize
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/store", h.store)
	rg.GET("/search", h.search)
	rg.GET("/orphans", h.orphans)
	rg.POST("/orphans/:fileId/repair", h.repair)
	rg.GET("/:fileId", h.get)
}

func (h *Handler) store(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.FromError(c, apperr.Validation("documents.store", "File too large"), "Failed to store document")
			return
		}
		respond.FromError(c, apperr.Validation("documents.store", "No image provided"), "Failed to store document")
		return
	}
	if fileHeader.Size > h.MaxUploadBytes {
		respond.FromError(c, apperr.Validation("documents.store", "File too large"), "Failed to store document")
		return
	}

	var meta Record
	raw := strings.TrimSpace(c.PostForm("metadata"))
	if raw == "" || json.Unmarshal([]byte(raw), &meta) != nil {
		respond.FromError(c, apperr.Validation("documents.store", "metadata must be a JSON object"), "Failed to store document")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.FromError(c, apperr.Validation("documents.store", "Unable to read image"), "Failed to store document")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.FromError(c, apperr.Validation("documents.store", "Unable to read image"), "Failed to store document")
		return
	}

	c.Set(middleware.DocumentTypeKey, string(meta.Category()))
	rec, err := h.Svc.Store(c.Request.Context(), StoreInput{
		Image:    data,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Metadata: meta,
	})
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindPartialFailure {
			if id, ok := e.Details["file_id"].(string); ok {
				c.Set(middleware.FileIDKey, id)
			}
		}
		respond.FromError(c, err, "Failed to store document")
		return
	}

	c.Set(middleware.FileIDKey, rec.FileID)
	respond.OK(c, storeResponse{
		Success:     true,
		FileID:      rec.FileID,
		WebViewLink: rec.WebViewLink,
		Metadata:    rec,
	})
}

func (h *Handler) search(c *gin.Context) {
	q := SearchQuery{
		Query: c.Query("query"),
		Type:  c.Query("type"),
	}
	var err error
	if q.StartDate, err = parseDate(c.Query("startDate")); err != nil {
		respond.FromError(c, apperr.Validation("documents.search", "startDate must be a date"), "Failed to search documents")
		return
	}
	if q.EndDate, err = parseDate(c.Query("endDate")); err != nil {
		respond.FromError(c, apperr.Validation("documents.search", "endDate must be a date"), "Failed to search documents")
		return
	}

	results, err := h.Svc.Search(c.Request.Context(), q)
	if err != nil {
		respond.FromError(c, err, "Failed to search documents")
		return
	}
	respond.OK(c, searchResponse{Results: results})
}

func (h *Handler) get(c *gin.Context) {
	fileID := c.Param("fileId")
	f, err := h.Svc.Get(c.Request.Context(), fileID)
	if err != nil {
		respond.FromError(c, err, "Failed to fetch document")
		return
	}
	c.Set(middleware.FileIDKey, f.ID)
	respond.OK(c, toFileResponse(f))
}

func (h *Handler) orphans(c *gin.Context) {
	filings, err := h.Svc.ListOrphans(c.Request.Context())
	if err != nil {
		respond.FromError(c, err, "Failed to list orphans")
		return
	}
	out := make([]FilingResponse, 0, len(filings))
	for _, f := range filings {
		out = append(out, toFilingResponse(f))
	}
	respond.OK(c, gin.H{"orphans": out})
}

func (h *Handler) repair(c *gin.Context) {
	fileID := c.Param("fileId")
	c.Set(middleware.FileIDKey, fileID)

	f, err := h.Svc.Repair(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, ErrUnknownOrphan) {
			respond.Error(c, http.StatusNotFound, "not_found", "No journal entry for file", nil)
			return
		}
		respond.FromError(c, err, "Failed to repair document")
		return
	}
	respond.OK(c, gin.H{"success": true, "filing": toFilingResponse(f)})
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate accepts ISO timestamps and plain dates; date-only values are UTC midnight.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("invalid date")
}
