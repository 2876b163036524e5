package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

// VenueSearch describes a window an organizer wants a venue for.
type VenueSearch struct {
	StartTime   time.Time
	EndTime     time.Time
	MinCapacity int
}

type VenueService struct {
	catalog VenueCatalog
	logger  *zap.Logger
}

func NewVenueService(catalog VenueCatalog, logger *zap.Logger) *VenueService {
	return &VenueService{catalog: catalog, logger: logger}
}

// GetByID returns the venue or model.ErrVenueNotFound.
func (s *VenueService) GetByID(ctx context.Context, venueID int64) (*model.Venue, error) {
	v, err := s.catalog.GetVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("get venue: %w", err)
	}
	if v == nil {
		return nil, model.ErrVenueNotFound
	}
	return v, nil
}

// Available returns the active venues that seat MinCapacity and have no
// pending or approved booking overlapping the window. The result is a
// snapshot; Submit re-checks under the venue lock.
func (s *VenueService) Available(ctx context.Context, q VenueSearch) ([]*model.Venue, error) {
	var errs ValidationErrors
	if q.StartTime.IsZero() {
		errs.add("start_time", "start time is required")
	}
	if q.EndTime.IsZero() {
		errs.add("end_time", "end time is required")
	}
	if !q.StartTime.IsZero() && !q.EndTime.IsZero() && !q.EndTime.After(q.StartTime) {
		errs.add("end_time", "end time must be after start time")
	}
	if q.MinCapacity < 0 {
		errs.add("min_capacity", "minimum capacity cannot be negative")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	venues, err := s.catalog.ListActiveVenues(ctx, q.MinCapacity)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}

	available := make([]*model.Venue, 0, len(venues))
	for _, v := range venues {
		free, err := IsAvailable(ctx, s.catalog, v.ID, q.StartTime, q.EndTime, 0)
		if err != nil {
			return nil, err
		}
		if free {
			available = append(available, v)
		}
	}

	s.logger.Debug("Venue search",
		zap.Time("start_time", q.StartTime),
		zap.Time("end_time", q.EndTime),
		zap.Int("min_capacity", q.MinCapacity),
		zap.Int("candidates", len(venues)),
		zap.Int("available", len(available)),
	)

	return available, nil
}
