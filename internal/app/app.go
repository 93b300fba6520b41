// Package app wires the exchange clients, market feed, persistence and
// engine into one runnable unwind bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"okx-unwind-bot/internal/account"
	"okx-unwind-bot/internal/alerts"
	"okx-unwind-bot/internal/config"
	"okx-unwind-bot/internal/engine"
	"okx-unwind-bot/internal/ledger"
	"okx-unwind-bot/internal/market"
	"okx-unwind-bot/internal/metrics"
	"okx-unwind-bot/internal/okx/rest"
	"okx-unwind-bot/internal/okx/ws"
	"okx-unwind-bot/internal/stats"

	"golang.org/x/time/rate"

	"go.uber.org/zap"
)

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	rest   *rest.Client
	feed   *market.Feed
	store  *ledger.SQLiteStore
	stats  *stats.Recorder
	prom   *metrics.Prometheus
	alerts *alerts.Notifier
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	restClient := rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, creds, cfg.REST.Simulated,
		rate.Limit(cfg.REST.RateLimit), cfg.REST.RateBurst, log)

	if err := os.MkdirAll(filepath.Dir(cfg.Ledger.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := ledger.NewSQLite(cfg.Ledger.SQLitePath)
	if err != nil {
		return nil, err
	}

	recorder, err := stats.New(cfg.Stats, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	wsClient := ws.New(cfg.WS.URL, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	feed := market.NewFeed(wsClient, log, cfg.Engine.SpotInstID(), cfg.Engine.SwapInstID())

	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
	}

	return &App{
		cfg:    cfg,
		log:    log,
		rest:   restClient,
		feed:   feed,
		store:  store,
		stats:  recorder,
		prom:   prom,
		alerts: alerts.New(cfg.Telegram, log),
	}, nil
}

// Run executes one unwind session and returns when it completes or
// aborts.
func (a *App) Run(ctx context.Context, req engine.Request) error {
	defer a.store.Close()
	defer a.stats.Close()

	specs, err := a.loadSpecs(ctx)
	if err != nil {
		return err
	}
	a.log.Info("instrument specs loaded",
		zap.String("spot", specs.SpotInstID),
		zap.String("swap", specs.SwapInstID),
		zap.Float64("ctVal", specs.CtVal))

	a.stats.Start(ctx)
	if err := a.feed.Start(ctx); err != nil {
		return fmt.Errorf("start market feed: %w", err)
	}
	a.startMetricsServer(ctx)

	inventory := account.NewInventory(a.rest, a.log, a.cfg.Engine.Currency, specs.SwapInstID, specs.CtVal)

	opts := engine.Options{
		Log:          a.log,
		Trader:       a.rest,
		Inventory:    inventory,
		Quotes:       a.feed,
		Sink:         a.store,
		Specs:        specs,
		Account:      a.cfg.Ledger.Account,
		Instrument:   a.cfg.Engine.Currency,
		PollInterval: a.cfg.Engine.StatusPollInterval,
	}
	if a.stats != nil {
		opts.Stats = a.stats
		opts.Observer = a.stats
	}
	if a.prom != nil {
		opts.Metrics = a.prom.Metrics
	}

	summary, runErr := engine.New(opts).Run(ctx, req)

	a.alerts.SessionDone(ctx, a.cfg.Engine.Currency, req.Mode, summary, runErr)
	if runErr == nil && req.Mode == engine.ModeReduce && a.cfg.Engine.TopUpMargin && summary.FreedUSDT > 0 {
		if err := a.rest.AddMargin(ctx, specs.SwapInstID, summary.FreedUSDT); err != nil {
			a.log.Error("margin top-up failed", zap.Error(err))
		} else {
			a.log.Info("freed cash added to swap margin", zap.Float64("amount", summary.FreedUSDT))
		}
	}
	return runErr
}

func (a *App) loadSpecs(ctx context.Context) (engine.Specs, error) {
	spotInst, err := a.rest.Instrument(ctx, "SPOT", a.cfg.Engine.SpotInstID())
	if err != nil {
		return engine.Specs{}, fmt.Errorf("load spot instrument: %w", err)
	}
	swapInst, err := a.rest.Instrument(ctx, "SWAP", a.cfg.Engine.SwapInstID())
	if err != nil {
		return engine.Specs{}, fmt.Errorf("load swap instrument: %w", err)
	}
	return buildSpecs(spotInst, swapInst)
}

// buildSpecs validates the venue-reported instrument constraints before
// the sizer divides by them.
func buildSpecs(spotInst, swapInst rest.Instrument) (engine.Specs, error) {
	if spotInst.MinSz <= 0 {
		return engine.Specs{}, fmt.Errorf("spot instrument %s has no minimum size", spotInst.InstID)
	}
	if spotInst.LotSz <= 0 {
		return engine.Specs{}, fmt.Errorf("spot instrument %s has no lot size", spotInst.InstID)
	}
	if swapInst.CtVal <= 0 {
		return engine.Specs{}, fmt.Errorf("swap instrument %s has no contract value", swapInst.InstID)
	}
	return engine.Specs{
		SpotInstID:    spotInst.InstID,
		SwapInstID:    swapInst.InstID,
		SpotMinSz:     spotInst.MinSz,
		SpotLotSz:     spotInst.LotSz,
		SpotLotDigits: spotInst.LotDecimalDigits(),
		CtVal:         swapInst.CtVal,
	}, nil
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.prom == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func credentialsFromEnv() (rest.Credentials, error) {
	creds := rest.Credentials{
		APIKey:     strings.TrimSpace(os.Getenv("OKX_API_KEY")),
		APISecret:  strings.TrimSpace(os.Getenv("OKX_API_SECRET")),
		Passphrase: strings.TrimSpace(os.Getenv("OKX_PASSPHRASE")),
	}
	if creds.APIKey == "" {
		return rest.Credentials{}, errors.New("OKX_API_KEY is required")
	}
	if creds.APISecret == "" {
		return rest.Credentials{}, errors.New("OKX_API_SECRET is required")
	}
	if creds.Passphrase == "" {
		return rest.Credentials{}, errors.New("OKX_PASSPHRASE is required")
	}
	return creds, nil
}
