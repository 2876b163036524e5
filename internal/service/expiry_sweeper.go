package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SweepFailure is one booking the sweeper could not expire.
type SweepFailure struct {
	BookingID int64  `json:"booking_id"`
	Error     string `json:"error"`
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Found    int            `json:"found"`
	Expired  int            `json:"expired"`
	Failures []SweepFailure `json:"failures"`
}

// ExpirySweeper rejects pending bookings whose start time has passed.
type ExpirySweeper struct {
	store    Store
	bookings *BookingService
	clock    Clock
	logger   *zap.Logger
}

func NewExpirySweeper(store Store, bookings *BookingService, clock Clock, logger *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		store:    store,
		bookings: bookings,
		clock:    clock,
		logger:   logger,
	}
}

// Run expires every overdue pending booking. A failure on one booking is
// recorded and the sweep moves on; the returned error covers only the
// initial lookup.
func (s *ExpirySweeper) Run(ctx context.Context) (*SweepResult, error) {
	now := s.clock.Now()

	overdue, err := s.store.FindPendingExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find expired pending bookings: %w", err)
	}

	result := &SweepResult{Found: len(overdue), Failures: []SweepFailure{}}
	if len(overdue) == 0 {
		s.logger.Debug("No expired pending bookings found", zap.Time("now", now))
		return result, nil
	}

	s.logger.Info("Expiring pending bookings",
		zap.Int("count", len(overdue)),
		zap.Time("now", now),
	)

	for _, b := range overdue {
		if _, err := s.bookings.expire(ctx, b.ID); err != nil {
			s.logger.Error("Failed to expire booking",
				zap.Int64("booking_id", b.ID),
				zap.Time("start_time", b.StartTime),
				zap.Error(err),
			)
			result.Failures = append(result.Failures, SweepFailure{BookingID: b.ID, Error: err.Error()})
			continue
		}
		result.Expired++
	}

	s.logger.Info("Expiry sweep completed",
		zap.Int("found", result.Found),
		zap.Int("expired", result.Expired),
		zap.Int("failed", len(result.Failures)),
	)

	return result, nil
}
