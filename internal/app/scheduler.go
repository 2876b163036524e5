package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/lock"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"go.uber.org/zap"
)

// ErrSweepInProgress is returned by RunOnce when another run holds the guard.
var ErrSweepInProgress = errors.New("expiry sweep already in progress")

// Sweeper is implemented by service.ExpirySweeper.
type Sweeper interface {
	Run(ctx context.Context) (*service.SweepResult, error)
}

// Scheduler runs the expiry sweep in the background and on demand. Every
// run, periodic or manual, goes through the same single-flight guard.
type Scheduler struct {
	sweeper  Sweeper
	guard    lock.Guard
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewScheduler(sweeper Sweeper, guard lock.Guard, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		guard:    guard,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the periodic sweep. The first run happens immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting expiry scheduler", zap.Duration("interval", s.interval))
	go s.loop(ctx)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping expiry scheduler")
		close(s.stopChan)
	})
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			s.logger.Info("Expiry scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Expiry scheduler cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress):
		s.logger.Info("Expiry sweep skipped, another run holds the lock")
	case err != nil:
		s.logger.Error("Expiry sweep failed", zap.Error(err))
	default:
		s.logger.Info("Expiry sweep completed",
			zap.Int("found", result.Found),
			zap.Int("expired", result.Expired),
			zap.Int("failed", len(result.Failures)),
		)
	}
}

// RunOnce performs a single guarded sweep.
func (s *Scheduler) RunOnce(ctx context.Context) (*service.SweepResult, error) {
	release, ok, err := s.guard.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, ErrSweepInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release sweep lock", zap.Error(err))
		}
	}()

	return s.sweeper.Run(ctx)
}
