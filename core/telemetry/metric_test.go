package telemetry

import (
	"testing"
	"time"
)

func TestMetricFrameQuantizationMerges(t *testing.T) {
	mt := NewMetric(time.Second, 0, 0)
	base := time.Unix(1000, 0)

	mt.Record(base, 1, OpAdd)
	mt.Record(base.Add(100*time.Millisecond), 2, OpAdd)

	if mt.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (same frame should merge)", mt.Len())
	}
	if sum := mt.Sum(base.Add(time.Second), 2*time.Second); sum != 3 {
		t.Fatalf("Sum = %v, want 3", sum)
	}
}

func TestMetricFrameQuantizationNewFrame(t *testing.T) {
	mt := NewMetric(time.Second, 0, 0)
	base := time.Unix(1000, 0)

	mt.Record(base, 1, OpAdd)
	mt.Record(base.Add(2*time.Second), 5, OpAdd)

	if mt.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (different frames)", mt.Len())
	}
}

func TestMetricSumAvgWindow(t *testing.T) {
	mt := NewMetric(time.Second, 0, 0)
	base := time.Unix(2000, 0)

	for i := 0; i < 5; i++ {
		mt.Record(base.Add(time.Duration(i)*time.Second), float64(i+1), OpSet)
	}
	now := base.Add(4 * time.Second)

	if sum := mt.Sum(now, 10*time.Second); sum != 15 {
		t.Fatalf("Sum = %v, want 15", sum)
	}
	if avg := mt.Avg(now, 10*time.Second); avg != 3 {
		t.Fatalf("Avg = %v, want 3", avg)
	}
}

func TestMetricAvgPerSecZeroSpan(t *testing.T) {
	mt := NewMetric(time.Second, 0, 0)
	now := time.Unix(3000, 0)
	mt.Record(now, 10, OpSet)

	if rate := mt.AvgPerSec(now, time.Second); rate != 0 {
		t.Fatalf("AvgPerSec with single point = %v, want 0", rate)
	}
}

func TestMetricMaxPointsTrims(t *testing.T) {
	mt := NewMetric(time.Second, 3, 0)
	base := time.Unix(4000, 0)

	for i := 0; i < 10; i++ {
		mt.Record(base.Add(time.Duration(i)*time.Second), 1, OpSet)
	}

	if mt.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 after trim", mt.Len())
	}
}

func TestManagerLazyCreateOrGet(t *testing.T) {
	m := NewManager()
	a := m.Metric("requests")
	b := m.Metric("requests")
	if a != b {
		t.Fatal("Metric should return the same instance for the same name")
	}
}

func TestRenderStatusIncludesRegisteredMetrics(t *testing.T) {
	m := NewManager()
	m.Metric("requests_total").Record(time.Now(), 42, OpAdd)

	out := string(RenderStatus(m))
	if !contains(out, "requests_total") {
		t.Fatalf("RenderStatus output missing metric name: %q", out)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
