package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"okx-unwind-bot/internal/market"
	"okx-unwind-bot/internal/okx/rest"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type pairOrders struct {
	spotAck rest.OrderAck
	swapAck rest.OrderAck
	spotErr error
	swapErr error
}

// submitPair places both legs concurrently and waits for both outcomes.
// Sequential submission would widen the half-open hedge window to two
// round trips; one pair, one race.
func (e *Engine) submitPair(ctx context.Context, sz sizing, spot, swap market.Ticker) pairOrders {
	spotReq := rest.OrderRequest{
		InstID:  e.specs.SpotInstID,
		TdMode:  "cash",
		Side:    "sell",
		OrdType: "fok",
		Sz:      sz.SpotSize,
		Px:      formatPx(spot.BidPx),
		ClOrdID: newClOrdID(),
	}
	swapReq := rest.OrderRequest{
		InstID:     e.specs.SwapInstID,
		TdMode:     "cross",
		Side:       "buy",
		OrdType:    "fok",
		Sz:         strconv.FormatInt(sz.Contracts, 10),
		Px:         formatPx(swap.AskPx),
		ReduceOnly: true,
		ClOrdID:    newClOrdID(),
	}

	var orders pairOrders
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		orders.spotAck, orders.spotErr = e.trader.PlaceOrder(ctx, spotReq)
	}()
	go func() {
		defer wg.Done()
		orders.swapAck, orders.swapErr = e.trader.PlaceOrder(ctx, swapReq)
	}()
	wg.Wait()
	return orders
}

// checkSubmission classifies a submitted pair. A transport error or a
// rejection sentinel on either leg is fatal; the surviving leg is
// queried once for diagnostics only, never unwound here. The polling
// path owns single-leg recovery, the submission path does not.
func (e *Engine) checkSubmission(ctx context.Context, orders pairOrders) error {
	if orders.spotErr != nil || orders.swapErr != nil {
		if orders.spotErr != nil && orders.swapErr == nil && !orders.swapAck.Rejected() {
			e.logSurvivingLeg(ctx, e.specs.SwapInstID, orders.swapAck.OrdID)
		}
		if orders.swapErr != nil && orders.spotErr == nil && !orders.spotAck.Rejected() {
			e.logSurvivingLeg(ctx, e.specs.SpotInstID, orders.spotAck.OrdID)
		}
		return fmt.Errorf("%w: spot err %v, swap err %v", ErrSubmissionFailed, orders.spotErr, orders.swapErr)
	}
	if orders.spotAck.Rejected() {
		e.log.Error("spot order rejected",
			zap.String("sCode", orders.spotAck.SCode),
			zap.String("sMsg", orders.spotAck.SMsg))
		return fmt.Errorf("%w: spot leg rejected: %s", ErrSubmissionFailed, orders.spotAck.SMsg)
	}
	if orders.swapAck.Rejected() {
		e.log.Error("swap order rejected",
			zap.String("sCode", orders.swapAck.SCode),
			zap.String("sMsg", orders.swapAck.SMsg))
		return fmt.Errorf("%w: swap leg rejected: %s", ErrSubmissionFailed, orders.swapAck.SMsg)
	}
	return nil
}

func (e *Engine) logSurvivingLeg(ctx context.Context, instID, ordID string) {
	detail, err := e.trader.OrderDetail(ctx, instID, ordID)
	if err != nil {
		e.log.Error("surviving leg status query failed", zap.String("instId", instID), zap.Error(err))
		return
	}
	e.log.Error("surviving leg after submission failure",
		zap.String("instId", instID),
		zap.String("ordId", detail.OrdID),
		zap.String("state", detail.State),
		zap.Float64("accFillSz", detail.AccFillSz))
}

func newClOrdID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func formatPx(px float64) string {
	return strconv.FormatFloat(px, 'f', -1, 64)
}
