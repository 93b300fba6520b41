// Package ledger records operation progress and settlement lines for
// crash visibility and bookkeeping. The engine writes; nothing here is
// ever read back into control flow.
package ledger

import (
	"context"
	"time"
)

// Operation identifies one in-flight unwind run.
type Operation struct {
	Account    int
	Instrument string
	Op         string
	Size       float64
}

// Progress is the per-fill checkpoint stored alongside the operation
// record, serialized compactly with msgpack.
type Progress struct {
	TargetRemaining float64   `msgpack:"target_remaining"`
	SpotFilledSum   float64   `msgpack:"spot_filled_sum"`
	SwapFilledSum   float64   `msgpack:"swap_filled_sum"`
	FreedUSDT       float64   `msgpack:"freed_usdt"`
	FeeTotal        float64   `msgpack:"fee_total"`
	UpdatedAt       time.Time `msgpack:"updated_at"`
}

// Line is one settlement ledger entry.
type Line struct {
	Account    int
	Instrument string
	Title      string
	Amount     float64
	Timestamp  time.Time
}

// Settlement line titles.
const (
	TitleSpotSold  = "spot sold"
	TitleSwapCover = "swap covered"
	TitleFees      = "fees"
	TitleFreedCash = "position closed"
)

type Store interface {
	Begin(ctx context.Context, op Operation) error
	Update(ctx context.Context, op Operation, progress Progress) error
	End(ctx context.Context, op Operation) error
	Settle(ctx context.Context, lines []Line) error
	Close() error
}
