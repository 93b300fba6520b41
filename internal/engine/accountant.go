package engine

import (
	"context"
	"fmt"
	"math"

	"okx-unwind-bot/internal/ledger"
	"okx-unwind-bot/internal/okx/rest"

	"go.uber.org/zap"
)

// settleFill folds one resolved pair into the session. The freed cash
// of a fill is the spot proceeds plus the swap leg's realized PnL,
// fees, and the collateral released as the short shrinks (margin
// before minus margin after).
func (e *Engine) settleFill(ctx context.Context, s *session, spotDetail, swapDetail rest.OrderDetail) error {
	marginBefore := s.margin
	holding, err := e.inventory.SwapHolding(ctx)
	if err != nil {
		return fmt.Errorf("refresh swap holding: %w", err)
	}
	s.margin = holding.Margin

	spotFilled := spotDetail.AccFillSz
	swapFilled := swapDetail.AccFillSz * e.specs.CtVal
	realizedPnL := swapFilled * (s.openPrice - swapDetail.AvgPx)
	freed := realizedPnL + spotFilled*spotDetail.AvgPx + spotDetail.Fee + swapDetail.Fee +
		marginBefore - holding.Margin

	s.summary.SpotFilled += spotFilled
	s.summary.SwapFilled += swapFilled
	s.summary.FreedUSDT += freed
	s.summary.FeeTotal += spotDetail.Fee + swapDetail.Fee
	s.summary.SpotNotional += spotFilled * spotDetail.AvgPx
	s.summary.SwapNotional -= swapFilled * swapDetail.AvgPx
	s.summary.Pairs++

	if math.Abs(spotFilled-swapFilled) >= e.specs.CtVal {
		return fmt.Errorf("%w: spot filled %.8f, swap filled %.8f", ErrHedgeParityViolation, spotFilled, swapFilled)
	}

	s.target -= swapFilled
	e.log.Info("pair hedged",
		zap.Float64("filled", swapFilled),
		zap.Float64("freed", freed),
		zap.Float64("remaining", s.target))
	if e.sink != nil {
		if err := e.sink.Update(ctx, s.op, ledger.Progress{
			TargetRemaining: s.target,
			SpotFilledSum:   s.summary.SpotFilled,
			SwapFilledSum:   s.summary.SwapFilled,
			FreedUSDT:       s.summary.FreedUSDT,
			FeeTotal:        s.summary.FeeTotal,
			UpdatedAt:       e.now().UTC(),
		}); err != nil {
			e.log.Error("operation progress update failed", zap.Error(err))
		}
	}

	// A fill elsewhere on the account may have moved either leg; clamp
	// the target to what actually remains.
	spotPos, err := e.inventory.SpotPosition(ctx)
	if err != nil {
		return fmt.Errorf("refresh spot position: %w", err)
	}
	s.spotPos = spotPos
	s.swapPos = holding.QtyBase
	s.target = math.Min(s.target, math.Min(s.spotPos, s.swapPos))
	return nil
}
