// cmd/survpipe/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/survstats/survpipe/pkg/config"
	"github.com/survstats/survpipe/pkg/pipeline"
)

func main() {
	// Optional .env for local runs; the environment wins over the file
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("Pipeline run failed", zap.Error(err))
	}

	logger.Info("Analysis finished",
		zap.String("runID", result.RunID),
		zap.Int("events", result.Outcome.Events),
		zap.Int("censored", result.Outcome.Censored),
		zap.Int("pooledTerms", len(result.Pooled.Terms)))
}

// buildLogger constructs the zap logger from the configured level and format
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level

	return zc.Build()
}
