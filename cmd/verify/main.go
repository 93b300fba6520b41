// Command verify is a preflight check. It confirms the exchange
// credentials work, prints the hedge inventory and instrument
// constraints, and lists any operation records left behind by a crashed
// run so the operator can reconcile before starting a new session.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"okx-unwind-bot/internal/config"
	"okx-unwind-bot/internal/engine"
	"okx-unwind-bot/internal/ledger"
	"okx-unwind-bot/internal/okx/rest"
	"okx-unwind-bot/internal/stats"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the yaml config file")
	envPath := flag.String("env", ".env", "path to the dotenv file with exchange credentials")
	flag.Parse()

	if err := run(*configPath, *envPath); err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envPath string) error {
	if err := config.LoadEnv(envPath); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	creds := rest.Credentials{
		APIKey:     os.Getenv("OKX_API_KEY"),
		APISecret:  os.Getenv("OKX_API_SECRET"),
		Passphrase: os.Getenv("OKX_PASSPHRASE"),
	}
	if creds.APIKey == "" || creds.APISecret == "" || creds.Passphrase == "" {
		return fmt.Errorf("OKX_API_KEY, OKX_API_SECRET and OKX_PASSPHRASE must be set")
	}

	client := rest.New(cfg.REST.BaseURL, cfg.REST.Timeout, creds, cfg.REST.Simulated,
		rate.Limit(cfg.REST.RateLimit), cfg.REST.RateBurst, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	balance, err := client.Balance(ctx, cfg.Engine.Currency)
	if err != nil {
		return fmt.Errorf("balance check failed, credentials likely invalid: %w", err)
	}
	fmt.Printf("credentials ok, %s cash balance: %.8f\n", cfg.Engine.Currency, balance)

	spotInst, err := client.Instrument(ctx, "SPOT", cfg.Engine.SpotInstID())
	if err != nil {
		return fmt.Errorf("load spot instrument: %w", err)
	}
	swapInst, err := client.Instrument(ctx, "SWAP", cfg.Engine.SwapInstID())
	if err != nil {
		return fmt.Errorf("load swap instrument: %w", err)
	}
	fmt.Printf("%s: minSz %v lotSz %v\n", spotInst.InstID, spotInst.MinSz, spotInst.LotSz)
	fmt.Printf("%s: ctVal %v\n", swapInst.InstID, swapInst.CtVal)

	pos, err := client.Position(ctx, swapInst.InstID)
	if err != nil {
		return fmt.Errorf("load swap position: %w", err)
	}
	if pos.Contracts == 0 {
		fmt.Printf("no open %s position\n", swapInst.InstID)
	} else {
		fmt.Printf("%s position: %v contracts, margin %.2f, upl %.2f, avgPx %.2f\n",
			pos.InstID, pos.Contracts, pos.Margin, pos.UPL, pos.AvgPx)
	}

	if engine.InFundingBlackout(time.Now()) {
		fmt.Println("currently inside the funding settlement blackout window")
	} else {
		fmt.Println("outside the funding settlement blackout window")
	}

	if err := checkStats(ctx, cfg, swapInst.InstID); err != nil {
		return err
	}
	return printPending(ctx, cfg.Ledger.SQLitePath)
}

func checkStats(ctx context.Context, cfg *config.Config, instID string) error {
	recorder, err := stats.New(cfg.Stats, zap.NewNop())
	if err != nil {
		return fmt.Errorf("connect stats database: %w", err)
	}
	if recorder == nil {
		fmt.Println("spread statistics disabled")
		return nil
	}
	defer recorder.Close()
	summary, err := recorder.RecentStats(ctx, instID, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("query spread statistics: %w", err)
	}
	if summary.Samples == 0 {
		fmt.Println("no spread observations in the last 24h, acceleration will idle until some accrue")
		return nil
	}
	fmt.Printf("spread over last 24h: mean %.6f, stddev %.6f, %d samples\n",
		summary.Mean, summary.StdDev, summary.Samples)
	return nil
}

func printPending(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("no ledger database yet")
		return nil
	}
	store, err := ledger.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	pending, err := store.PendingOperations(ctx)
	if err != nil {
		return fmt.Errorf("read pending operations: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("no interrupted operations")
		return nil
	}
	fmt.Printf("%d interrupted operation(s):\n", len(pending))
	for _, p := range pending {
		fmt.Printf("  account %d %s %s size %.8f", p.Account, p.Instrument, p.Op, p.Size)
		if p.HasProgress {
			fmt.Printf(" (remaining %.8f, freed %.2f USDT, last update %s)",
				p.Progress.TargetRemaining, p.Progress.FreedUSDT,
				p.Progress.UpdatedAt.UTC().Format(time.RFC3339))
		}
		fmt.Println()
	}
	return nil
}
