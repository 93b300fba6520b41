// Package engine unwinds a delta-neutral spot/inverse-swap hedge. One
// parameterized session covers both operations: a partial reduce toward
// a target and a full close. Each qualifying price tick submits a spot
// sell and a swap buy-to-cover as one concurrent pair, reconciles the
// outcome, and folds the fill into a running freed-cash figure.
package engine

import (
	"context"
	"time"

	"okx-unwind-bot/internal/account"
	"okx-unwind-bot/internal/ledger"
	"okx-unwind-bot/internal/market"
	"okx-unwind-bot/internal/metrics"
	"okx-unwind-bot/internal/okx/rest"
	"okx-unwind-bot/internal/stats"

	"go.uber.org/zap"
)

// Mode selects the termination rule. Reduce runs while the remaining
// target covers at least one contract; close runs until the target is
// fully consumed, with the spot-dust flush rules enabled.
type Mode int

const (
	ModeReduce Mode = iota
	ModeClose
)

func (m Mode) String() string {
	if m == ModeClose {
		return "close"
	}
	return "reduce"
}

// Specs holds the per-session instrument constraints, loaded once.
type Specs struct {
	SpotInstID    string
	SwapInstID    string
	SpotMinSz     float64
	SpotLotSz     float64
	SpotLotDigits int
	CtVal         float64
}

// Request describes one unwind run. TargetUSDT and TargetBase are
// mutually exclusive; TargetUSDT wins when both are set. Close mode
// ignores both and unwinds the whole hedge.
type Request struct {
	Mode            Mode
	TargetUSDT      float64
	TargetBase      float64
	PriceDiff       float64
	AccelerateAfter time.Duration
}

// Summary is what a session returns. FreedUSDT is valid on abort too:
// it reflects the pairs that resolved before the terminal condition.
type Summary struct {
	FreedUSDT    float64
	SpotFilled   float64
	SwapFilled   float64
	FeeTotal     float64
	SpotNotional float64
	SwapNotional float64
	Pairs        int
}

type Trader interface {
	PlaceOrder(ctx context.Context, req rest.OrderRequest) (rest.OrderAck, error)
	OrderDetail(ctx context.Context, instID, ordID string) (rest.OrderDetail, error)
}

type InventoryReader interface {
	SpotPosition(ctx context.Context) (float64, error)
	SwapHolding(ctx context.Context) (account.Holding, error)
}

type QuoteStream interface {
	Updates() <-chan market.Ticker
	Latest(instID string) (market.Ticker, bool)
}

// SpreadStats feeds the acceleration policy. Injected so tests can pin
// the distribution.
type SpreadStats interface {
	RecentStats(ctx context.Context, instID string, window time.Duration) (stats.Summary, error)
}

// SpreadObserver receives every evaluated spread sample.
type SpreadObserver interface {
	Observe(obs stats.Observation)
}

// OperationSink records progress and settlement lines. Write-only: the
// engine never reads persisted state back into control flow.
type OperationSink interface {
	Begin(ctx context.Context, op ledger.Operation) error
	Update(ctx context.Context, op ledger.Operation, progress ledger.Progress) error
	End(ctx context.Context, op ledger.Operation) error
	Settle(ctx context.Context, lines []ledger.Line) error
}

type sessionState int

const (
	stateRunning sessionState = iota
	stateCompleted
	stateAborted
)

// Options wires one Engine. Stats, Observer and Sink may be nil; the
// engine then skips acceleration, observation recording and
// persistence respectively.
type Options struct {
	Log          *zap.Logger
	Trader       Trader
	Inventory    InventoryReader
	Quotes       QuoteStream
	Stats        SpreadStats
	Observer     SpreadObserver
	Sink         OperationSink
	Metrics      *metrics.Metrics
	Specs        Specs
	Account      int
	Instrument   string
	PollInterval time.Duration
	Now          func() time.Time
}

type Engine struct {
	log          *zap.Logger
	trader       Trader
	inventory    InventoryReader
	quotes       QuoteStream
	stats        SpreadStats
	observer     SpreadObserver
	sink         OperationSink
	metrics      *metrics.Metrics
	specs        Specs
	account      int
	instrument   string
	pollInterval time.Duration
	now          func() time.Time
}

func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Engine{
		log:          log,
		trader:       opts.Trader,
		inventory:    opts.Inventory,
		quotes:       opts.Quotes,
		stats:        opts.Stats,
		observer:     opts.Observer,
		sink:         opts.Sink,
		metrics:      m,
		specs:        opts.Specs,
		account:      opts.Account,
		instrument:   opts.Instrument,
		pollInterval: pollInterval,
		now:          now,
	}
}
