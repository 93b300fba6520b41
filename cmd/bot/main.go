package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"okx-unwind-bot/internal/app"
	"okx-unwind-bot/internal/config"
	"okx-unwind-bot/internal/engine"
	"okx-unwind-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to the yaml config file")
	envPath := flag.String("env", ".env", "path to the dotenv file with exchange credentials")
	op := flag.String("op", "", "operation to run: reduce or close")
	usdt := flag.Float64("usdt", 0, "reduce target in quote currency (USDT of freed margin)")
	target := flag.Float64("target", 0, "reduce target in base currency, used when -usdt is 0")
	priceDiff := flag.Float64("price-diff", 0, "minimum spread ratio to trade on, overrides the config value")
	accelerateAfter := flag.Duration("accelerate-after", 0, "recompute the spread threshold from recorded stats after this quiet interval, overrides the config value")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "load env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	req, err := buildRequest(cfg, *op, *usdt, *target, *priceDiff, *accelerateAfter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	log := logging.New(cfg.Log)
	defer log.Sync()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, req); err != nil {
		log.Fatal("run failed", zap.Error(err))
	}
}

func buildRequest(cfg *config.Config, op string, usdt, target, priceDiff float64, accelerateAfter time.Duration) (engine.Request, error) {
	req := engine.Request{
		PriceDiff:       cfg.Engine.PriceDiff,
		AccelerateAfter: cfg.Engine.AccelerateAfter,
	}
	if priceDiff > 0 {
		req.PriceDiff = priceDiff
	}
	if accelerateAfter > 0 {
		req.AccelerateAfter = accelerateAfter
	}
	switch op {
	case "reduce":
		req.Mode = engine.ModeReduce
		req.TargetUSDT = usdt
		req.TargetBase = target
		if usdt <= 0 && target <= 0 {
			return engine.Request{}, fmt.Errorf("reduce needs -usdt or -target")
		}
	case "close":
		req.Mode = engine.ModeClose
	default:
		return engine.Request{}, fmt.Errorf("unknown operation %q, want reduce or close", op)
	}
	return req, nil
}
