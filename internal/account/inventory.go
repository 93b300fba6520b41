package account

import (
	"context"
	"errors"

	"okx-unwind-bot/internal/okx/rest"

	"go.uber.org/zap"
)

// Holding is one observation of the swap leg. Quantities are positive
// for the short hedge: QtyBase is the base-unit size of the short.
type Holding struct {
	Contracts float64
	QtyBase   float64
	Margin    float64
	UPL       float64
	AvgPx     float64
	Last      float64
}

// Exists reports whether the swap position is open.
func (h Holding) Exists() bool {
	return h.QtyBase != 0
}

// LiquidationSpread is (margin+upl)/qty, the per-unit cash backing the
// short. Used to convert a USDT target into base units.
func (h Holding) LiquidationSpread() float64 {
	if h.QtyBase == 0 {
		return 0
	}
	return (h.Margin + h.UPL) / h.QtyBase
}

type exchangeAPI interface {
	Balance(ctx context.Context, ccy string) (float64, error)
	Position(ctx context.Context, instID string) (rest.Position, error)
}

// Inventory reads position snapshots on demand. The exchange owns the
// data; nothing is cached between calls.
type Inventory struct {
	api        exchangeAPI
	log        *zap.Logger
	currency   string
	swapInstID string
	ctVal      float64
}

func NewInventory(api exchangeAPI, log *zap.Logger, currency, swapInstID string, ctVal float64) *Inventory {
	return &Inventory{api: api, log: log, currency: currency, swapInstID: swapInstID, ctVal: ctVal}
}

// SpotPosition returns the sellable spot balance in base units.
func (inv *Inventory) SpotPosition(ctx context.Context) (float64, error) {
	if inv.api == nil {
		return 0, errors.New("exchange api is required")
	}
	return inv.api.Balance(ctx, inv.currency)
}

// SwapHolding returns the current swap short. The exchange reports a
// short as negative contracts; QtyBase flips the sign so both legs of
// the hedge compare directly.
func (inv *Inventory) SwapHolding(ctx context.Context) (Holding, error) {
	if inv.api == nil {
		return Holding{}, errors.New("exchange api is required")
	}
	pos, err := inv.api.Position(ctx, inv.swapInstID)
	if err != nil {
		return Holding{}, err
	}
	return Holding{
		Contracts: pos.Contracts,
		QtyBase:   -pos.Contracts * inv.ctVal,
		Margin:    pos.Margin,
		UPL:       pos.UPL,
		AvgPx:     pos.AvgPx,
		Last:      pos.Last,
	}, nil
}
