// Package metrics collects per-stage processing latency and session
// counters for the pipeline.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// StageSummary is a read-only latency digest for one pipeline stage
type StageSummary struct {
	Stage string
	Count int64
	P50   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// LatencyRecorder tracks processing latency per stage in HDR histograms,
// 1µs to 10s with three significant figures.
type LatencyRecorder struct {
	mu    sync.Mutex
	hists map[string]*hdrhistogram.Histogram
}

// NewLatencyRecorder creates an empty recorder
func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{hists: make(map[string]*hdrhistogram.Histogram)}
}

// Record adds one latency observation for a stage
func (r *LatencyRecorder) Record(stage string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hists[stage]
	if !ok {
		h = hdrhistogram.New(time.Microsecond.Microseconds(), (10 * time.Second).Microseconds(), 3)
		r.hists[stage] = h
	}

	_ = h.RecordValue(d.Microseconds())
}

// Summaries returns one digest per stage, sorted by stage name
func (r *LatencyRecorder) Summaries() []StageSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StageSummary, 0, len(r.hists))
	for stage, h := range r.hists {
		out = append(out, StageSummary{
			Stage: stage,
			Count: h.TotalCount(),
			P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
			P99:   time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
			Max:   time.Duration(h.Max()) * time.Microsecond,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}
