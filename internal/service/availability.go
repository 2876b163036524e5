package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// Overlaps reports whether [s1, e1) and [s2, e2) intersect. Touching
// intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// FindConflict returns the first booking on the venue that holds the slot and
// overlaps [start, end), ignoring excludeBookingID. It returns nil when the
// venue is free.
func FindConflict(ctx context.Context, src ActiveBookingLister, venueID int64, start, end time.Time, excludeBookingID int64) (*model.Booking, error) {
	bookings, err := src.ListActiveBookingsForVenue(ctx, venueID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list bookings for venue %d: %w", venueID, err)
	}

	for _, b := range bookings {
		if excludeBookingID != 0 && b.ID == excludeBookingID {
			continue
		}
		if !b.Status.HoldsVenue() {
			continue
		}
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			return b, nil
		}
	}

	return nil, nil
}

// IsAvailable reports whether the venue is free for [start, end).
func IsAvailable(ctx context.Context, src ActiveBookingLister, venueID int64, start, end time.Time, excludeBookingID int64) (bool, error) {
	conflict, err := FindConflict(ctx, src, venueID, start, end, excludeBookingID)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}
