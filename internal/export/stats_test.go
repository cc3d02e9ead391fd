package export

import (
	"testing"
	"time"

	"github.com/dgallion1/chatexport/internal/render"
)

func TestRenderStatsSnapshotPercentiles(t *testing.T) {
	stats := NewRenderStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(render.FormatPDF, time.Duration(ms)*time.Millisecond)
	}

	snap := stats.Snapshot()[render.FormatPDF]
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestRenderStatsKeyedByFormat(t *testing.T) {
	stats := NewRenderStats(time.Hour)
	stats.Record(render.FormatPDF, 10*time.Millisecond)
	stats.Record(render.FormatXLSX, 30*time.Millisecond)
	stats.Record(render.FormatXLSX, 50*time.Millisecond)

	snap := stats.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 formats, got %d", len(snap))
	}
	if snap[render.FormatXLSX].Count != 2 || snap[render.FormatXLSX].AvgMs != 40 {
		t.Errorf("unexpected xlsx snapshot: %+v", snap[render.FormatXLSX])
	}
	if _, ok := snap[render.FormatDOCX]; ok {
		t.Error("format without samples should be absent")
	}
}

func TestRenderStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewRenderStats(time.Minute)
	stats.now = func() time.Time { return now }

	stats.Record(render.FormatPDF, 100*time.Millisecond)
	now = now.Add(2 * time.Minute)

	if snap := stats.Snapshot(); len(snap) != 0 {
		t.Fatalf("expected no formats after prune, got %+v", snap)
	}

	stats.Record(render.FormatPDF, 200*time.Millisecond)
	snap := stats.Snapshot()[render.FormatPDF]
	if snap.Count != 1 || snap.MinMs != 200 || snap.MaxMs != 200 {
		t.Fatalf("expected single fresh sample of 200ms, got %+v", snap)
	}
}

func TestRenderStatsClampsNegativeDuration(t *testing.T) {
	stats := NewRenderStats(time.Hour)
	stats.Record(render.FormatDOCX, -10*time.Millisecond)
	snap := stats.Snapshot()[render.FormatDOCX]
	if snap.Count != 1 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got %+v", snap)
	}
}
