package stats

import (
	"math"
	"testing"
)

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.Samples != 0 || summary.Mean != 0 || summary.StdDev != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestSummarizeSingleSample(t *testing.T) {
	summary := Summarize([]float64{0.003})
	if summary.Samples != 1 {
		t.Fatalf("expected 1 sample, got %d", summary.Samples)
	}
	if summary.Mean != 0.003 {
		t.Fatalf("expected mean 0.003, got %v", summary.Mean)
	}
	if summary.StdDev != 0 {
		t.Fatalf("single sample has no deviation, got %v", summary.StdDev)
	}
}

func TestSummarize(t *testing.T) {
	spreads := []float64{0.001, 0.002, 0.003, 0.004, 0.005}
	summary := Summarize(spreads)
	if summary.Samples != 5 {
		t.Fatalf("expected 5 samples, got %d", summary.Samples)
	}
	if math.Abs(summary.Mean-0.003) > 1e-12 {
		t.Fatalf("expected mean 0.003, got %v", summary.Mean)
	}
	want := math.Sqrt(2.5e-6)
	if math.Abs(summary.StdDev-want) > 1e-12 {
		t.Fatalf("expected stddev %v, got %v", want, summary.StdDev)
	}
}

func TestNilRecorderIsInert(t *testing.T) {
	var r *Recorder
	r.Observe(Observation{Spread: 0.001})
	if err := r.Close(); err != nil {
		t.Fatalf("nil recorder close: %v", err)
	}
}
