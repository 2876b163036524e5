package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// ActiveBookingLister returns bookings on a venue that still hold their slot
// (pending or approved) and intersect [from, to).
type ActiveBookingLister interface {
	ListActiveBookingsForVenue(ctx context.Context, venueID int64, from, to time.Time) ([]*model.Booking, error)
}

// EquipmentGetter returns nil, nil when the equipment does not exist.
type EquipmentGetter interface {
	GetEquipment(ctx context.Context, id int64) (*model.Equipment, error)
}

// VenueGetter returns nil, nil when the venue does not exist.
type VenueGetter interface {
	GetVenue(ctx context.Context, id int64) (*model.Venue, error)
}

// Reader is the read side shared by the store and an open transaction.
type Reader interface {
	VenueGetter
	EquipmentGetter
	ActiveBookingLister
}

// Tx is a unit of work. Locks taken through it are held until commit or rollback.
type Tx interface {
	Reader

	// LockVenue serializes writers on a venue for the rest of the transaction.
	LockVenue(ctx context.Context, venueID int64) error
	// LockEquipment locks equipment rows in ascending id order.
	LockEquipment(ctx context.Context, ids []int64) error
	// GetBookingForUpdate locks and returns the booking, nil if missing.
	GetBookingForUpdate(ctx context.Context, id int64) (*model.Booking, error)

	CreateBooking(ctx context.Context, booking *model.Booking) error
	UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus, change model.StatusChange) error
	// AdjustAvailableQuantity fails with model.ErrInsufficientQuantity instead
	// of leaving available_quantity outside [0, quantity].
	AdjustAvailableQuantity(ctx context.Context, equipmentID int64, delta int) error
}

type Store interface {
	Reader

	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error)
	ListPendingBookings(ctx context.Context) ([]*model.Booking, error)
	FindPendingExpired(ctx context.Context, now time.Time) ([]*model.Booking, error)

	// InTx runs fn inside one transaction, committing only when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// VenueCatalog is the read side used by venue search.
type VenueCatalog interface {
	VenueGetter
	ActiveBookingLister

	// ListActiveVenues returns active venues seating at least minCapacity.
	ListActiveVenues(ctx context.Context, minCapacity int) ([]*model.Venue, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListAdmins(ctx context.Context) ([]*model.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type Auditor interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
}
