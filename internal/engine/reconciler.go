package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"okx-unwind-bot/internal/okx/rest"

	"go.uber.org/zap"
)

type pairOutcome int

const (
	pairFilled pairOutcome = iota
	pairNoFill
)

// resolvePair polls both legs until both are terminal. FOK makes
// filled/filled and canceled/canceled the common cases; the divergent
// branch covers the race where one leg fills just before the exchange
// kills the other, and recovers it with an unconditional market order.
func (e *Engine) resolvePair(ctx context.Context, orders pairOrders, sz sizing) (rest.OrderDetail, rest.OrderDetail, pairOutcome, error) {
	spotID := orders.spotAck.OrdID
	swapID := orders.swapAck.OrdID
	for {
		spotDetail, swapDetail, err := e.pollPair(ctx, spotID, swapID)
		if err != nil {
			return spotDetail, swapDetail, pairNoFill, err
		}
		switch {
		case spotDetail.State == rest.StateFilled && swapDetail.State == rest.StateFilled:
			return spotDetail, swapDetail, pairFilled, nil

		case spotDetail.State == rest.StateFilled && swapDetail.State == rest.StateCanceled:
			e.log.Warn("swap leg canceled while spot filled, covering at market",
				zap.Int64("contracts", sz.Contracts))
			e.metrics.DivergentFallbacks.Inc()
			ack, err := e.trader.PlaceOrder(ctx, rest.OrderRequest{
				InstID:     e.specs.SwapInstID,
				TdMode:     "cross",
				Side:       "buy",
				OrdType:    "market",
				Sz:         strconv.FormatInt(sz.Contracts, 10),
				ReduceOnly: true,
				ClOrdID:    newClOrdID(),
			})
			if err != nil {
				return spotDetail, swapDetail, pairNoFill, fmt.Errorf("%w: %v", ErrDivergentFillFailed, err)
			}
			if ack.Rejected() {
				return spotDetail, swapDetail, pairNoFill, fmt.Errorf("%w: %s", ErrDivergentFillFailed, ack.SMsg)
			}
			swapID = ack.OrdID

		case swapDetail.State == rest.StateFilled && spotDetail.State == rest.StateCanceled:
			e.log.Warn("spot leg canceled while swap filled, selling at market",
				zap.String("size", sz.SpotSize))
			e.metrics.DivergentFallbacks.Inc()
			ack, err := e.trader.PlaceOrder(ctx, rest.OrderRequest{
				InstID:  e.specs.SpotInstID,
				TdMode:  "cash",
				Side:    "sell",
				OrdType: "market",
				Sz:      sz.SpotSize,
				ClOrdID: newClOrdID(),
			})
			if err != nil {
				return spotDetail, swapDetail, pairNoFill, fmt.Errorf("%w: %v", ErrDivergentFillFailed, err)
			}
			if ack.Rejected() {
				return spotDetail, swapDetail, pairNoFill, fmt.Errorf("%w: %s", ErrDivergentFillFailed, ack.SMsg)
			}
			spotID = ack.OrdID

		case spotDetail.State == rest.StateCanceled && swapDetail.State == rest.StateCanceled:
			return spotDetail, swapDetail, pairNoFill, nil

		default:
			e.log.Debug("awaiting status update",
				zap.String("spotState", spotDetail.State),
				zap.String("swapState", swapDetail.State))
		}

		select {
		case <-ctx.Done():
			return spotDetail, swapDetail, pairNoFill, ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}

func (e *Engine) pollPair(ctx context.Context, spotID, swapID string) (rest.OrderDetail, rest.OrderDetail, error) {
	var spotDetail, swapDetail rest.OrderDetail
	var spotErr, swapErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		spotDetail, spotErr = e.trader.OrderDetail(ctx, e.specs.SpotInstID, spotID)
	}()
	go func() {
		defer wg.Done()
		swapDetail, swapErr = e.trader.OrderDetail(ctx, e.specs.SwapInstID, swapID)
	}()
	wg.Wait()
	if spotErr != nil {
		return spotDetail, swapDetail, fmt.Errorf("spot order status: %w", spotErr)
	}
	if swapErr != nil {
		return spotDetail, swapDetail, fmt.Errorf("swap order status: %w", swapErr)
	}
	return spotDetail, swapDetail, nil
}
