package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulativeOnce(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	var buf strings.Builder
	snap := h.Snapshot()
	var cumulative uint64
	got := []uint64{}
	for i := range snap.buckets {
		cumulative += snap.counts[i]
		got = append(got, cumulative)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected cumulative buckets: %v", got)
	}
	if snap.count != 3 || snap.sum != 555 {
		t.Fatalf("unexpected count/sum: %d %v", snap.count, snap.sum)
	}
	buf.WriteString(Render())
	if !strings.Contains(buf.String(), "# TYPE ocr_duration_ms histogram") {
		t.Fatalf("expected ocr histogram in output")
	}
}

func TestRenderIncludesPipelineCounters(t *testing.T) {
	IncDocumentStored()
	IncSidecarFailure()
	out := Render()
	for _, name := range []string{"ocr_requests_total", "documents_stored_total", "sidecar_failures_total", "folders_created_total"} {
		if !strings.Contains(out, "# TYPE "+name+" counter") {
			t.Fatalf("missing counter %s in:\n%s", name, out)
		}
	}
}
