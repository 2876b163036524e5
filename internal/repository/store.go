package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL implementation of service.Store and
// service.UserDirectory.
type Store struct {
	pool *pgxpool.Pool
	repos
}

// repos groups the repositories bound to one querier (pool or tx).
type repos struct {
	bookings  *BookingRepository
	venues    *VenueRepository
	equipment *EquipmentRepository
	users     *UserRepository
	audit     *AuditRepository
}

func newRepos(q base.Querier) repos {
	return repos{
		bookings:  NewBookingRepository(q),
		venues:    NewVenueRepository(q),
		equipment: NewEquipmentRepository(q),
		users:     NewUserRepository(q),
		audit:     NewAuditRepository(q),
	}
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: newRepos(pool)}
}

// Users exposes the user repository for the controllers.
func (s *Store) Users() *UserRepository {
	return s.users
}

// Audit exposes the audit repository; it implements service.Auditor.
func (s *Store) Audit() *AuditRepository {
	return s.audit
}

func (r repos) GetVenue(ctx context.Context, id int64) (*model.Venue, error) {
	return r.venues.GetByID(ctx, id)
}

func (r repos) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	return r.equipment.GetByID(ctx, id)
}

func (r repos) ListActiveBookingsForVenue(ctx context.Context, venueID int64, from, to time.Time) ([]*model.Booking, error) {
	return r.bookings.ListActiveByVenue(ctx, venueID, from, to)
}

func (s *Store) ListActiveVenues(ctx context.Context, minCapacity int) ([]*model.Venue, error) {
	return s.venues.ListActive(ctx, minCapacity)
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *Store) ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error) {
	return s.bookings.ListByRequester(ctx, requesterID)
}

func (s *Store) ListPendingBookings(ctx context.Context) ([]*model.Booking, error) {
	return s.bookings.ListPending(ctx)
}

func (s *Store) FindPendingExpired(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	return s.bookings.FindPendingExpired(ctx, now)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Store) ListAdmins(ctx context.Context) ([]*model.User, error) {
	return s.users.ListAdmins(ctx)
}

// InTx runs fn in a read-committed transaction. The transaction is committed
// only when fn returns nil and rolled back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx service.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer func() { _ = pgTx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(ctx, &txStore{repos: newRepos(pgTx)}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStore implements service.Tx over an open pgx transaction.
type txStore struct {
	repos
}

func (t *txStore) LockVenue(ctx context.Context, venueID int64) error {
	return t.venues.Lock(ctx, venueID)
}

func (t *txStore) LockEquipment(ctx context.Context, ids []int64) error {
	return t.equipment.LockForUpdate(ctx, ids)
}

func (t *txStore) GetBookingForUpdate(ctx context.Context, id int64) (*model.Booking, error) {
	return t.bookings.GetForUpdate(ctx, id)
}

func (t *txStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	return t.bookings.Create(ctx, booking)
}

func (t *txStore) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus, change model.StatusChange) error {
	return t.bookings.UpdateStatus(ctx, id, status, change)
}

func (t *txStore) AdjustAvailableQuantity(ctx context.Context, equipmentID int64, delta int) error {
	return t.equipment.AdjustAvailableQuantity(ctx, equipmentID, delta)
}

var (
	_ service.Store         = (*Store)(nil)
	_ service.UserDirectory = (*Store)(nil)
	_ service.VenueCatalog  = (*Store)(nil)
	_ service.Tx            = (*txStore)(nil)
	_ service.Auditor       = (*AuditRepository)(nil)
)
