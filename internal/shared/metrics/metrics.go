package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsStartedTotal   atomic.Uint64
	uploadsCompletedTotal atomic.Uint64
	uploadsFailedTotal    atomic.Uint64
	uploadsDegradedTotal  atomic.Uint64

	extractionDuration = newHistogram([]float64{10, 25, 50, 100, 250, 500, 1000, 5000, 15000})
)

// IncUploadStarted increments the started counter.
func IncUploadStarted() {
	uploadsStartedTotal.Add(1)
}

// IncUploadCompleted increments the completed counter.
func IncUploadCompleted() {
	uploadsCompletedTotal.Add(1)
}

// IncUploadFailed increments the failed counter.
func IncUploadFailed() {
	uploadsFailedTotal.Add(1)
}

// IncUploadDegraded counts uploads whose blob write failed after the
// metadata insert succeeded.
func IncUploadDegraded() {
	uploadsDegradedTotal.Add(1)
}

// ObserveExtractionDurationMs records one extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
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
	writeCounter(&buf, "uploads_started_total", "Total uploads started", uploadsStartedTotal.Load())
	writeCounter(&buf, "uploads_completed_total", "Total uploads completed", uploadsCompletedTotal.Load())
	writeCounter(&buf, "uploads_failed_total", "Total uploads failed", uploadsFailedTotal.Load())
	writeCounter(&buf, "uploads_degraded_total", "Total uploads left degraded-available", uploadsDegradedTotal.Load())
	writeHistogram(&buf, "extraction_duration_ms", "Text extraction duration in milliseconds", extractionDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
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
