package export

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/chatexport/internal/render"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of render latency samples.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// RenderStats tracks recent render latencies per format within a rolling window.
type RenderStats struct {
	mu      sync.Mutex
	samples map[render.Format][]sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRenderStats(maxAge time.Duration) *RenderStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RenderStats{
		samples: make(map[render.Format][]sample),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (s *RenderStats) Record(f render.Format, d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.samples[f] = append(prune(s.samples[f], now.Add(-s.maxAge)), sample{
		timestamp:  now,
		durationMs: ms,
	})
}

// Snapshot returns one aggregate per format that has samples in the window.
func (s *RenderStats) Snapshot() map[render.Format]StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.maxAge)
	out := make(map[render.Format]StatsSnapshot, len(s.samples))
	for f, samples := range s.samples {
		samples = prune(samples, cutoff)
		s.samples[f] = samples
		if len(samples) == 0 {
			continue
		}
		out[f] = summarize(samples)
	}
	return out
}

func summarize(samples []sample) StatsSnapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// prune drops samples older than cutoff in place.
func prune(samples []sample, cutoff time.Time) []sample {
	n := 0
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			samples[n] = sm
			n++
		}
	}
	return samples[:n]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
