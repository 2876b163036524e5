package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

// memStore is an in-memory Store. Transactions are serialized and rolled
// back by restoring a snapshot.
type memStore struct {
	mu        sync.Mutex
	venues    map[int64]*model.Venue
	equipment map[int64]*model.Equipment
	bookings  map[int64]*model.Booking
	nextID    int64

	failStatusUpdate map[int64]error
	failFindExpired  error

	lockedVenues    []int64
	lockedEquipment [][]int64
}

func newMemStore() *memStore {
	return &memStore{
		venues:           make(map[int64]*model.Venue),
		equipment:        make(map[int64]*model.Equipment),
		bookings:         make(map[int64]*model.Booking),
		failStatusUpdate: make(map[int64]error),
	}
}

func (s *memStore) addVenue(v *model.Venue) *model.Venue {
	s.venues[v.ID] = v
	return v
}

func (s *memStore) addEquipment(e *model.Equipment) *model.Equipment {
	s.equipment[e.ID] = e
	return e
}

func (s *memStore) addBooking(b *model.Booking) *model.Booking {
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	}
	s.bookings[b.ID] = b
	return b
}

func (s *memStore) booking(id int64) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Clone()
}

func (s *memStore) available(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.equipment[id].AvailableQuantity
}

func (s *memStore) GetVenue(ctx context.Context, id int64) (*model.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s}).GetVenue(ctx, id)
}

func (s *memStore) GetEquipment(ctx context.Context, id int64) (*model.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s}).GetEquipment(ctx, id)
}

func (s *memStore) ListActiveBookingsForVenue(ctx context.Context, venueID int64, from, to time.Time) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&memTx{s}).ListActiveBookingsForVenue(ctx, venueID, from, to)
}

func (s *memStore) ListActiveVenues(_ context.Context, minCapacity int) ([]*model.Venue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Venue
	for _, v := range s.venues {
		if v.IsActive && v.Capacity >= minCapacity {
			c := *v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Clone(), nil
}

func (s *memStore) ListBookingsByRequester(ctx context.Context, requesterID int64) ([]*model.Booking, error) {
	return s.filter(func(b *model.Booking) bool { return b.RequesterID == requesterID }), nil
}

func (s *memStore) ListPendingBookings(ctx context.Context) ([]*model.Booking, error) {
	return s.filter(func(b *model.Booking) bool { return b.Status == model.BookingStatusPending }), nil
}

func (s *memStore) FindPendingExpired(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	if s.failFindExpired != nil {
		return nil, s.failFindExpired
	}
	return s.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusPending && !b.StartTime.After(now)
	}), nil
}

func (s *memStore) filter(keep func(b *model.Booking) bool) []*model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	equipment := make(map[int64]*model.Equipment, len(s.equipment))
	for id, e := range s.equipment {
		c := *e
		equipment[id] = &c
	}
	bookings := make(map[int64]*model.Booking, len(s.bookings))
	for id, b := range s.bookings {
		bookings[id] = b.Clone()
	}
	nextID := s.nextID

	if err := fn(ctx, &memTx{s}); err != nil {
		s.equipment = equipment
		s.bookings = bookings
		s.nextID = nextID
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t *memTx) GetVenue(_ context.Context, id int64) (*model.Venue, error) {
	v, ok := t.s.venues[id]
	if !ok {
		return nil, nil
	}
	c := *v
	return &c, nil
}

func (t *memTx) GetEquipment(_ context.Context, id int64) (*model.Equipment, error) {
	e, ok := t.s.equipment[id]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (t *memTx) ListActiveBookingsForVenue(_ context.Context, venueID int64, from, to time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range t.s.bookings {
		if b.VenueID == venueID && b.Status.HoldsVenue() && b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) LockVenue(_ context.Context, venueID int64) error {
	t.s.lockedVenues = append(t.s.lockedVenues, venueID)
	return nil
}

func (t *memTx) LockEquipment(_ context.Context, ids []int64) error {
	t.s.lockedEquipment = append(t.s.lockedEquipment, append([]int64(nil), ids...))
	return nil
}

func (t *memTx) GetBookingForUpdate(_ context.Context, id int64) (*model.Booking, error) {
	return t.s.bookings[id].Clone(), nil
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	t.s.nextID++
	b.ID = t.s.nextID
	for i := range b.Equipment {
		b.Equipment[i].BookingID = b.ID
	}
	t.s.bookings[b.ID] = b.Clone()
	return nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, id int64, status model.BookingStatus, change model.StatusChange) error {
	if err := t.s.failStatusUpdate[id]; err != nil {
		return err
	}
	b, ok := t.s.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	b.Status = status
	b.AdminNotes = change.AdminNotes
	b.RejectionReason = change.RejectionReason
	if change.TotalCostCents != nil {
		total := *change.TotalCostCents
		b.TotalCostCents = &total
	}
	return nil
}

func (t *memTx) AdjustAvailableQuantity(_ context.Context, id int64, delta int) error {
	e, ok := t.s.equipment[id]
	if !ok || !e.CanAdjust(delta) {
		return model.ErrInsufficientQuantity
	}
	e.AvailableQuantity += delta
	return nil
}

type memUsers struct {
	users map[int64]*model.User
}

func (u *memUsers) GetUser(_ context.Context, id int64) (*model.User, error) {
	return u.users[id], nil
}

func (u *memUsers) ListAdmins(_ context.Context) ([]*model.User, error) {
	var admins []*model.User
	for _, user := range u.users {
		if user.IsAdmin() {
			admins = append(admins, user)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []model.Notification
	fails int // number of calls to fail before succeeding; -1 fails forever
}

func (n *recordingNotifier) Notify(_ context.Context, note model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails != 0 {
		if n.fails > 0 {
			n.fails--
		}
		return errors.New("notifier unavailable")
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *recordingNotifier) kinds() []model.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]model.NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, entry *model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

const (
	adminID     int64 = 1
	organizerID int64 = 2
	otherUserID int64 = 3

	hallA     int64 = 10
	projector int64 = 20
	mic       int64 = 21
)

type testEnv struct {
	store    *memStore
	users    *memUsers
	notifier *recordingNotifier
	auditor  *recordingAuditor
	clock    *fixedClock
	bookings *BookingService
	sweeper  *ExpirySweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	store.addVenue(&model.Venue{ID: hallA, Name: "Hall A", Capacity: 200, IsActive: true})
	store.addEquipment(&model.Equipment{ID: projector, Name: "Projector", Category: "Projector", Quantity: 5, AvailableQuantity: 2, IsActive: true})
	store.addEquipment(&model.Equipment{ID: mic, Name: "Microphone", Category: "Microphone", Quantity: 10, AvailableQuantity: 10, IsActive: true})

	users := &memUsers{users: map[int64]*model.User{
		adminID:     {ID: adminID, Name: "Admin", Role: model.UserRoleAdmin, TelegramID: 100},
		organizerID: {ID: organizerID, Name: "Organizer", Role: model.UserRoleOrganizer, TelegramID: 200},
		otherUserID: {ID: otherUserID, Name: "Other", Role: model.UserRoleOrganizer},
	}}

	notifier := &recordingNotifier{}
	auditor := &recordingAuditor{}
	clock := &fixedClock{now: time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)}
	logger := zap.NewNop()

	dispatcher := NewDispatcher(users, logger,
		WithNotifiers(notifier),
		WithAuditor(auditor),
		WithRetry(2, time.Millisecond),
	)
	bookings := NewBookingService(store, dispatcher, clock, logger)

	return &testEnv{
		store:    store,
		users:    users,
		notifier: notifier,
		auditor:  auditor,
		clock:    clock,
		bookings: bookings,
		sweeper:  NewExpirySweeper(store, bookings, clock, logger),
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, time.UTC)
}

func validRequest() BookingRequest {
	return BookingRequest{
		VenueID:           hallA,
		RequesterID:       organizerID,
		EventTitle:        "Robotics Club Kickoff",
		StartTime:         at(1, 10, 0),
		EndTime:           at(1, 12, 0),
		ExpectedAttendees: 50,
	}
}
