package engine

import (
	"context"

	"go.uber.org/zap"
)

// maybeAccelerate recomputes the spread threshold from recent
// statistics once the configured window has elapsed, loosening the
// trigger to force completion under time pressure. A failed recompute
// only skips this adjustment; the timer is left untouched so the next
// tick retries.
func (e *Engine) maybeAccelerate(ctx context.Context, s *session) {
	if s.window <= 0 || e.stats == nil {
		return
	}
	now := e.now()
	if !now.After(s.nextAccel) {
		return
	}
	summary, err := e.stats.RecentStats(ctx, e.specs.SwapInstID, s.window)
	if err != nil {
		e.log.Warn("spread stats recompute failed", zap.Error(err))
		return
	}
	if summary.Samples == 0 {
		e.log.Warn("spread stats recompute skipped", zap.Error(ErrStatsUnavailable))
		return
	}
	s.threshold = summary.Mean - 2*summary.StdDev
	s.nextAccel = now.Add(s.window)
	e.log.Info("price diff threshold accelerated",
		zap.Float64("threshold", s.threshold),
		zap.Float64("mean", summary.Mean),
		zap.Float64("stddev", summary.StdDev),
		zap.Int("samples", summary.Samples))
}
