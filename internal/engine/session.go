package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"okx-unwind-bot/internal/ledger"
	"okx-unwind-bot/internal/stats"

	"go.uber.org/zap"
)

const defaultPriceDiff = 0.002

// session is the mutable state of one unwind run, exclusive to the
// running call. Nothing here survives the session: crash visibility
// lives in the operation record, not in this struct.
type session struct {
	mode      Mode
	op        ledger.Operation
	target    float64
	spotPos   float64
	swapPos   float64
	margin    float64
	openPrice float64
	threshold float64
	window    time.Duration
	nextAccel time.Time
	summary   Summary
	state     sessionState
	err       error
}

func (s *session) abort(err error) {
	s.state = stateAborted
	s.err = err
}

// Run executes one unwind session and returns the freed cash. An abort
// still returns the summary accumulated so far; callers must treat a
// below-target result as partial completion, not failure to start.
func (e *Engine) Run(ctx context.Context, req Request) (Summary, error) {
	spotPos, err := e.inventory.SpotPosition(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read spot position: %w", err)
	}
	holding, err := e.inventory.SwapHolding(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("read swap holding: %w", err)
	}
	if !holding.Exists() {
		e.log.Warn("no swap position to unwind", zap.String("instId", e.specs.SwapInstID))
		return Summary{}, nil
	}

	mode := req.Mode
	var target float64
	if mode == ModeReduce {
		if req.TargetUSDT > 0 {
			target = req.TargetUSDT / (holding.Last + holding.LiquidationSpread())
		} else {
			target = req.TargetBase
		}
		if target < e.specs.CtVal {
			e.log.Info("target below one contract, nothing to do",
				zap.Float64("target", target),
				zap.Float64("ctVal", e.specs.CtVal))
			return Summary{}, nil
		}
		if target > spotPos || target > holding.QtyBase {
			e.log.Info("target exceeds inventory, closing the whole hedge",
				zap.Float64("target", target),
				zap.Float64("spot", spotPos),
				zap.Float64("swap", holding.QtyBase))
			mode = ModeClose
		}
	}
	if mode == ModeClose {
		target = math.Min(spotPos, holding.QtyBase)
		if target < e.specs.CtVal {
			e.log.Info("remaining hedge below one contract, nothing to do",
				zap.Float64("target", target),
				zap.Float64("ctVal", e.specs.CtVal))
			return Summary{}, nil
		}
	}

	threshold := req.PriceDiff
	if threshold <= 0 {
		threshold = defaultPriceDiff
	}

	s := &session{
		mode:      mode,
		op:        ledger.Operation{Account: e.account, Instrument: e.instrument, Op: mode.String(), Size: target},
		target:    target,
		spotPos:   spotPos,
		swapPos:   holding.QtyBase,
		margin:    holding.Margin,
		openPrice: holding.AvgPx,
		threshold: threshold,
		window:    req.AccelerateAfter,
		nextAccel: e.now().Add(req.AccelerateAfter),
		state:     stateRunning,
	}
	if e.sink != nil {
		if err := e.sink.Begin(ctx, s.op); err != nil {
			return Summary{}, fmt.Errorf("record operation: %w", err)
		}
	}
	e.log.Info("unwind session started",
		zap.Stringer("mode", mode),
		zap.Float64("target", target),
		zap.Float64("threshold", threshold))

	e.runLoop(ctx, s)

	return e.finish(ctx, s)
}

func (e *Engine) runLoop(ctx context.Context, s *session) {
	for s.state == stateRunning {
		if s.mode == ModeReduce && s.target < e.specs.CtVal {
			s.state = stateCompleted
			return
		}
		if s.mode == ModeClose && s.target <= 0 {
			s.state = stateCompleted
			return
		}

		select {
		case <-ctx.Done():
			s.abort(ctx.Err())
			return
		case <-e.quotes.Updates():
		}
		spot, okSpot := e.quotes.Latest(e.specs.SpotInstID)
		swap, okSwap := e.quotes.Latest(e.specs.SwapInstID)
		if !okSpot || !okSwap {
			continue
		}

		e.maybeAccelerate(ctx, s)

		spread := (swap.AskPx - spot.BidPx) / spot.BidPx
		if e.observer != nil {
			e.observer.Observe(stats.Observation{
				Time:   e.now().UTC(),
				InstID: e.specs.SwapInstID,
				Spread: spread,
			})
		}
		if spread < s.threshold {
			continue
		}

		if s.target > s.spotPos {
			s.abort(fmt.Errorf("%w: spot %.8f short of target %.8f", ErrInsufficientInventory, s.spotPos, s.target))
			return
		}
		if s.target > s.swapPos {
			s.abort(fmt.Errorf("%w: swap %.8f short of target %.8f", ErrInsufficientInventory, s.swapPos, s.target))
			return
		}

		sz := sizePair(s.mode, s.target, s.spotPos, s.swapPos, spot, swap, e.specs)
		if sz.Skip {
			continue
		}
		if InFundingBlackout(e.now()) {
			e.log.Debug("funding blackout, tick suppressed")
			continue
		}

		orders := e.submitPair(ctx, sz, spot, swap)
		e.metrics.PairsSubmitted.Inc()
		if err := e.checkSubmission(ctx, orders); err != nil {
			s.abort(err)
			return
		}

		spotDetail, swapDetail, outcome, err := e.resolvePair(ctx, orders, sz)
		if err != nil {
			s.abort(err)
			return
		}
		if outcome == pairNoFill {
			e.metrics.PairsCanceled.Inc()
			continue
		}
		e.metrics.PairsFilled.Inc()

		if err := e.settleFill(ctx, s, spotDetail, swapDetail); err != nil {
			s.abort(err)
			return
		}
	}
}

func (e *Engine) finish(ctx context.Context, s *session) (Summary, error) {
	if e.sink != nil {
		if s.summary.SpotNotional != 0 {
			ts := e.now().UTC()
			lines := []ledger.Line{
				{Account: e.account, Instrument: e.instrument, Title: ledger.TitleSpotSold, Amount: s.summary.SpotNotional, Timestamp: ts},
				{Account: e.account, Instrument: e.instrument, Title: ledger.TitleSwapCover, Amount: s.summary.SwapNotional, Timestamp: ts},
				{Account: e.account, Instrument: e.instrument, Title: ledger.TitleFees, Amount: s.summary.FeeTotal, Timestamp: ts},
			}
			if s.mode == ModeClose {
				lines = append(lines, ledger.Line{Account: e.account, Instrument: e.instrument, Title: ledger.TitleFreedCash, Amount: s.summary.FreedUSDT, Timestamp: ts})
			}
			if err := e.sink.Settle(ctx, lines); err != nil {
				e.log.Error("ledger settle failed", zap.Error(err))
			}
		}
		if err := e.sink.End(ctx, s.op); err != nil {
			e.log.Error("operation record cleanup failed", zap.Error(err))
		}
	}

	if s.state == stateAborted {
		e.metrics.SessionsAborted.Inc()
		e.log.Warn("unwind session aborted",
			zap.Stringer("mode", s.mode),
			zap.Float64("freed", s.summary.FreedUSDT),
			zap.Float64("remaining", s.target),
			zap.Error(s.err))
		return s.summary, s.err
	}
	e.metrics.SessionsCompleted.Inc()
	e.log.Info("unwind session completed",
		zap.Stringer("mode", s.mode),
		zap.Float64("unwound", s.summary.SwapFilled),
		zap.Float64("freed", s.summary.FreedUSDT))
	return s.summary, nil
}
