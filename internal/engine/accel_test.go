package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"okx-unwind-bot/internal/stats"

	"go.uber.org/zap"
)

func TestMaybeAccelerateRecomputesThreshold(t *testing.T) {
	statsSvc := &fakeStats{summary: stats.Summary{Mean: 0.004, StdDev: 0.0005, Samples: 120}}
	eng := New(Options{
		Log:   zap.NewNop(),
		Stats: statsSvc,
		Specs: testSpecs,
		Now:   func() time.Time { return quietTime },
	})
	s := &session{
		threshold: 0.002,
		window:    time.Hour,
		nextAccel: quietTime.Add(-time.Minute),
	}
	eng.maybeAccelerate(context.Background(), s)
	want := 0.004 - 2*0.0005
	if math.Abs(s.threshold-want) > 1e-12 {
		t.Fatalf("expected threshold %v, got %v", want, s.threshold)
	}
	if !s.nextAccel.Equal(quietTime.Add(time.Hour)) {
		t.Fatalf("expected timer advanced to %v, got %v", quietTime.Add(time.Hour), s.nextAccel)
	}
	if statsSvc.calls != 1 {
		t.Fatalf("expected one stats call, got %d", statsSvc.calls)
	}
}

func TestMaybeAccelerateBeforeWindowElapsed(t *testing.T) {
	statsSvc := &fakeStats{summary: stats.Summary{Mean: 0.004, StdDev: 0.0005, Samples: 120}}
	eng := New(Options{
		Log:   zap.NewNop(),
		Stats: statsSvc,
		Specs: testSpecs,
		Now:   func() time.Time { return quietTime },
	})
	s := &session{
		threshold: 0.002,
		window:    time.Hour,
		nextAccel: quietTime.Add(time.Minute),
	}
	eng.maybeAccelerate(context.Background(), s)
	if s.threshold != 0.002 {
		t.Fatalf("threshold must not change before the window elapses, got %v", s.threshold)
	}
	if statsSvc.calls != 0 {
		t.Fatalf("stats must not be queried early, got %d calls", statsSvc.calls)
	}
}

func TestMaybeAccelerateFailureOnlySkipsRecompute(t *testing.T) {
	statsSvc := &fakeStats{err: errors.New("connection refused")}
	eng := New(Options{
		Log:   zap.NewNop(),
		Stats: statsSvc,
		Specs: testSpecs,
		Now:   func() time.Time { return quietTime },
	})
	before := quietTime.Add(-time.Minute)
	s := &session{
		threshold: 0.002,
		window:    time.Hour,
		nextAccel: before,
	}
	eng.maybeAccelerate(context.Background(), s)
	if s.threshold != 0.002 {
		t.Fatalf("threshold must survive a failed recompute, got %v", s.threshold)
	}
	if !s.nextAccel.Equal(before) {
		t.Fatalf("timer must not advance on failure so the next tick retries")
	}
}

func TestMaybeAccelerateNoSamples(t *testing.T) {
	statsSvc := &fakeStats{summary: stats.Summary{}}
	eng := New(Options{
		Log:   zap.NewNop(),
		Stats: statsSvc,
		Specs: testSpecs,
		Now:   func() time.Time { return quietTime },
	})
	s := &session{
		threshold: 0.002,
		window:    time.Hour,
		nextAccel: quietTime.Add(-time.Minute),
	}
	eng.maybeAccelerate(context.Background(), s)
	if s.threshold != 0.002 {
		t.Fatalf("an empty window must not change the threshold, got %v", s.threshold)
	}
}
