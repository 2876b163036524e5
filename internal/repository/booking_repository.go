package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(q base.Querier) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(q)}
}

const bookingColumns = `
	id, reference_code, venue_id, requester_id, event_title, event_description,
	start_time, end_time, expected_attendees, status, admin_notes, rejection_reason,
	total_cost_cents, created_at, updated_at
`

func scanBooking(row interface{ Scan(dest ...any) error }) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.ReferenceCode,
		&b.VenueID,
		&b.RequesterID,
		&b.EventTitle,
		&b.EventDescription,
		&b.StartTime,
		&b.EndTime,
		&b.ExpectedAttendees,
		&b.Status,
		&b.AdminNotes,
		&b.RejectionReason,
		&b.TotalCostCents,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the booking together with its equipment lines.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			reference_code, venue_id, requester_id, event_title, event_description,
			start_time, end_time, expected_attendees, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.Q().QueryRow(
		ctx, query,
		booking.ReferenceCode,
		booking.VenueID,
		booking.RequesterID,
		booking.EventTitle,
		booking.EventDescription,
		booking.StartTime,
		booking.EndTime,
		booking.ExpectedAttendees,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	for i := range booking.Equipment {
		item := &booking.Equipment[i]
		item.BookingID = booking.ID
		_, err := r.Q().Exec(ctx,
			`INSERT INTO booking_equipment (booking_id, equipment_id, quantity, subtotal_cents) VALUES ($1, $2, $3, $4)`,
			booking.ID, item.EquipmentID, item.Quantity, item.SubtotalCents,
		)
		if err != nil {
			return fmt.Errorf("create booking equipment %d: %w", item.EquipmentID, err)
		}
	}

	return nil
}

// GetByID returns nil, nil when the booking does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetForUpdate is GetByID with a row lock held until the transaction ends.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, id int64) (*model.Booking, error) {
	booking, err := scanBooking(r.Q().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	if err := r.loadEquipment(ctx, []*model.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListActiveByVenue returns pending and approved bookings on the venue
// whose [start, end) intersects [from, to).
func (r *BookingRepository) ListActiveByVenue(ctx context.Context, venueID int64, from, to time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE venue_id = $1
		  AND status IN ('pending', 'approved')
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`
	return r.list(ctx, "list active bookings by venue", query, venueID, from, to)
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, "list bookings by requester", query, requesterID)
}

// ListPending returns the approval queue, oldest request first.
func (r *BookingRepository) ListPending(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending'
		ORDER BY created_at, id
	`
	return r.list(ctx, "list pending bookings", query)
}

// FindPendingExpired returns pending bookings whose start time is not after now.
func (r *BookingRepository) FindPendingExpired(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'pending'
		  AND start_time <= $1
		ORDER BY start_time, id
	`
	return r.list(ctx, "find expired pending bookings", query, now)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, change model.StatusChange) error {
	query := `
		UPDATE bookings
		SET status = $2,
		    admin_notes = $3,
		    rejection_reason = $4,
		    total_cost_cents = COALESCE($5, total_cost_cents),
		    updated_at = NOW()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, status, change.AdminNotes, change.RejectionReason, change.TotalCostCents)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update booking %d status: %w", id, model.ErrBookingNotFound)
	}
	return nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Booking, error) {
		return scanBooking(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.loadEquipment(ctx, bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadEquipment fills Equipment for all bookings with a single query.
func (r *BookingRepository) loadEquipment(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	ids := make([]int64, len(bookings))
	byID := make(map[int64]*model.Booking, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		byID[b.ID] = b
		b.Equipment = []model.BookingEquipment{}
	}

	query := `
		SELECT booking_id, equipment_id, quantity, subtotal_cents
		FROM booking_equipment
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, equipment_id
	`
	rows, err := r.Q().Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load booking equipment: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.BookingEquipment
		if err := rows.Scan(&item.BookingID, &item.EquipmentID, &item.Quantity, &item.SubtotalCents); err != nil {
			return fmt.Errorf("scan booking equipment: %w", err)
		}
		if b, ok := byID[item.BookingID]; ok {
			b.Equipment = append(b.Equipment, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate booking equipment: %w", err)
	}
	return nil
}
