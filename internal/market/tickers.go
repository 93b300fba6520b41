package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"okx-unwind-bot/internal/okx/ws"

	"go.uber.org/zap"
)

// Ticker is the latest best bid/ask for one instrument.
type Ticker struct {
	InstID string
	BidPx  float64
	BidSz  float64
	AskPx  float64
	AskSz  float64
	Time   time.Time
}

// Feed multiplexes the OKX tickers channel for a set of instruments. It
// keeps the latest quote per instrument and forwards every update to a
// bounded channel; a slow consumer loses intermediate quotes, never the
// latest one.
type Feed struct {
	ws  *ws.Client
	log *zap.Logger

	mu      sync.RWMutex
	latest  map[string]Ticker
	wanted  map[string]struct{}
	updates chan Ticker
}

func NewFeed(wsClient *ws.Client, log *zap.Logger, instIDs ...string) *Feed {
	wanted := make(map[string]struct{}, len(instIDs))
	for _, id := range instIDs {
		wanted[id] = struct{}{}
	}
	return &Feed{
		ws:      wsClient,
		log:     log,
		latest:  make(map[string]Ticker, len(instIDs)),
		wanted:  wanted,
		updates: make(chan Ticker, 16),
	}
}

func (f *Feed) Start(ctx context.Context) error {
	if f.ws == nil {
		return nil
	}
	if err := f.ws.Connect(ctx); err != nil {
		return err
	}
	subs := make([]ws.Subscription, 0, len(f.wanted))
	for instID := range f.wanted {
		subs = append(subs, ws.Subscription{Channel: "tickers", InstID: instID})
	}
	if err := f.ws.Subscribe(ctx, subs...); err != nil {
		return err
	}
	go func() {
		_ = f.ws.Run(ctx, f.handleMessage)
	}()
	return nil
}

// Updates delivers each parsed ticker. The channel is never closed; the
// consumer exits via its own context.
func (f *Feed) Updates() <-chan Ticker {
	return f.updates
}

func (f *Feed) Latest(instID string) (Ticker, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ticker, ok := f.latest[instID]
	return ticker, ok
}

func (f *Feed) handleMessage(msg json.RawMessage) {
	ticker, ok := parseTickerPush(msg)
	if !ok {
		return
	}
	f.mu.RLock()
	_, wanted := f.wanted[ticker.InstID]
	f.mu.RUnlock()
	if !wanted {
		return
	}
	f.mu.Lock()
	f.latest[ticker.InstID] = ticker
	f.mu.Unlock()
	select {
	case f.updates <- ticker:
	default:
		// Drop the oldest queued quote so the freshest one always fits.
		select {
		case <-f.updates:
		default:
		}
		select {
		case f.updates <- ticker:
		default:
		}
	}
}
