// Command makerbot is the entry point for the DEX liquidity seeding bot. It
// loads configuration, validates it, wires dependencies, sets up signal
// handling, and runs the configured mode to completion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/seedliq/makerbot/internal/app"
	"github.com/seedliq/makerbot/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "operating mode override: rebuild, quote, seed or balances")
	market := flag.String("market", "", "target market, e.g. ZRX/ETH or ZRX-WETH")
	bidBudget := flag.String("bid-budget", "", "base-asset quantity for the bid ladder")
	askBudget := flag.String("ask-budget", "", "base-asset quantity for the ask ladder")
	source := flag.String("source", "aggregate", "reference price source: aggregate, dex or custom")
	customBid := flag.String("custom-bid", "", "manual bid rate (source=custom)")
	customAsk := flag.String("custom-ask", "", "manual ask rate (source=custom)")
	flag.Parse()

	// Bootstrap logger; replaced once the configured level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("makerbot starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, app.RunOptions{
		Market:    *market,
		BidBudget: *bidBudget,
		AskBudget: *askBudget,
		Source:    *source,
		CustomBid: *customBid,
		CustomAsk: *customAsk,
	}, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
		} else {
			logger.Error("exited with error", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("makerbot stopped")
}
