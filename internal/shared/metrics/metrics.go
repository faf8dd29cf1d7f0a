package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	ocrRequestsTotal    atomic.Uint64
	ocrFailedTotal      atomic.Uint64
	suggestionsTotal    atomic.Uint64
	uploadsTotal        atomic.Uint64
	documentsStored     atomic.Uint64
	sidecarFailures     atomic.Uint64
	sidecarsSkipped     atomic.Uint64
	foldersCreatedTotal atomic.Uint64

	ocrDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncOCRRequest counts an OCR request.
func IncOCRRequest() { ocrRequestsTotal.Add(1) }

// IncOCRFailed counts an OCR request that failed after validation.
func IncOCRFailed() { ocrFailedTotal.Add(1) }

// IncSuggestion counts a folder suggestion request.
func IncSuggestion() { suggestionsTotal.Add(1) }

// IncUpload counts an ad hoc capture upload.
func IncUpload() { uploadsTotal.Add(1) }

// IncDocumentStored counts a structured store with both binary and sidecar written.
func IncDocumentStored() { documentsStored.Add(1) }

// IncSidecarFailure counts a store whose sidecar write failed after the binary landed.
func IncSidecarFailure() { sidecarFailures.Add(1) }

// IncSidecarSkipped counts a sidecar the index could not download or parse.
func IncSidecarSkipped() { sidecarsSkipped.Add(1) }

// IncFolderCreated counts folders created by the resolver.
func IncFolderCreated() { foldersCreatedTotal.Add(1) }

// ObserveOCRDurationMs records an OCR duration in milliseconds.
func ObserveOCRDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	ocrDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "ocr_requests_total", "Total OCR requests", ocrRequestsTotal.Load())
	writeCounter(&buf, "ocr_failed_total", "Total OCR requests that failed", ocrFailedTotal.Load())
	writeCounter(&buf, "folder_suggestions_total", "Total folder suggestion requests", suggestionsTotal.Load())
	writeCounter(&buf, "capture_uploads_total", "Total ad hoc capture uploads", uploadsTotal.Load())
	writeCounter(&buf, "documents_stored_total", "Total structured documents stored", documentsStored.Load())
	writeCounter(&buf, "sidecar_failures_total", "Total sidecar writes that failed after the binary was stored", sidecarFailures.Load())
	writeCounter(&buf, "sidecars_skipped_total", "Total sidecars skipped by search", sidecarsSkipped.Load())
	writeCounter(&buf, "folders_created_total", "Total folders created by the resolver", foldersCreatedTotal.Load())
	writeHistogram(&buf, "ocr_duration_ms", "OCR duration in milliseconds", ocrDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket that holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed milliseconds since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
