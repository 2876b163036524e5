package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type VenueRepository struct {
	*base.Repository
}

func NewVenueRepository(q base.Querier) *VenueRepository {
	return &VenueRepository{Repository: base.NewRepository(q)}
}

const venueColumns = `id, name, location, capacity, hourly_rate_cents, is_active, created_at`

func scanVenue(row interface{ Scan(dest ...any) error }) (*model.Venue, error) {
	var v model.Venue
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Location,
		&v.Capacity,
		&v.HourlyRateCents,
		&v.IsActive,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns nil, nil when the venue does not exist.
func (r *VenueRepository) GetByID(ctx context.Context, id int64) (*model.Venue, error) {
	v, err := scanVenue(r.Q().QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get venue by id: %w", err)
	}
	return v, nil
}

// ListActive returns active venues seating at least minCapacity, smallest first.
func (r *VenueRepository) ListActive(ctx context.Context, minCapacity int) ([]*model.Venue, error) {
	query := `
		SELECT ` + venueColumns + `
		FROM venues
		WHERE is_active
		  AND capacity >= $1
		ORDER BY capacity, id
	`

	rows, err := r.Q().Query(ctx, query, minCapacity)
	if err != nil {
		return nil, fmt.Errorf("list active venues: %w", err)
	}

	venues, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Venue, error) {
		return scanVenue(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list active venues: %w", err)
	}
	return venues, nil
}

// Lock takes a transaction-scoped advisory lock keyed by the venue id.
// It must run inside a transaction, otherwise it is released immediately.
func (r *VenueRepository) Lock(ctx context.Context, venueID int64) error {
	if _, err := r.Q().Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, venueID); err != nil {
		return fmt.Errorf("lock venue %d: %w", venueID, err)
	}
	return nil
}

