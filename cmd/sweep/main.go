// Command sweep runs one expiry sweep and exits. It is meant for an external
// scheduler such as cron. It requires REDIS_ADDR so that it shares the
// single-flight guard with the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/venue_booking/internal/app"
	"github.com/Freeeeeet/venue_booking/internal/config"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	code := run(cfg, logger)
	_ = logger.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, logger *zap.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger, app.RequireSharedGuard())
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return 1
	}
	defer components.Close()

	result, err := components.Scheduler.RunOnce(ctx)
	if errors.Is(err, app.ErrSweepInProgress) {
		logger.Info("Another sweep is running, nothing to do")
		return 0
	}
	if err != nil {
		logger.Error("Expiry sweep failed", zap.Error(err))
		return 1
	}

	fmt.Printf("found=%d expired=%d failed=%d\n", result.Found, result.Expired, len(result.Failures))
	for _, f := range result.Failures {
		fmt.Printf("  booking %d: %s\n", f.BookingID, f.Error)
	}

	if len(result.Failures) > 0 {
		return 1
	}
	return 0
}
