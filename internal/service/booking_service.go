package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const referenceCodePrefix = "UM-EVENT-"

// BookingService owns the booking lifecycle: pending -> approved | rejected | cancelled.
type BookingService struct {
	store      Store
	validator  *Validator
	dispatcher *Dispatcher
	clock      Clock
	logger     *zap.Logger
}

func NewBookingService(
	store Store,
	dispatcher *Dispatcher,
	clock Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		store:      store,
		validator:  NewValidator(clock),
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// Validate runs the admission check outside of a transaction. Useful for
// previews; Submit re-runs it under locks.
func (s *BookingService) Validate(ctx context.Context, req BookingRequest) (ValidationErrors, error) {
	return s.validator.Validate(ctx, s.store, req)
}

// Submit validates the request and creates a pending booking, reserving its
// equipment. Validation and the write happen in one transaction holding the
// venue lock and the equipment row locks.
func (s *BookingService) Submit(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	var booking *model.Booking

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if req.VenueID > 0 {
			if err := tx.LockVenue(ctx, req.VenueID); err != nil {
				return fmt.Errorf("lock venue: %w", err)
			}
		}
		if err := tx.LockEquipment(ctx, equipmentIDs(req.Equipment)); err != nil {
			return fmt.Errorf("lock equipment: %w", err)
		}

		verrs, err := s.validator.Validate(ctx, tx, req)
		if err != nil {
			return err
		}
		if len(verrs) > 0 {
			return verrs
		}

		booking = &model.Booking{
			ReferenceCode:     newReferenceCode(),
			VenueID:           req.VenueID,
			RequesterID:       req.RequesterID,
			EventTitle:        strings.TrimSpace(req.EventTitle),
			EventDescription:  req.EventDescription,
			StartTime:         req.StartTime,
			EndTime:           req.EndTime,
			ExpectedAttendees: req.ExpectedAttendees,
			Status:            model.BookingStatusPending,
			Equipment:         append([]model.BookingEquipment(nil), req.Equipment...),
		}

		if err := priceEquipment(ctx, tx, booking.Equipment); err != nil {
			return err
		}

		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		return reserveEquipment(ctx, tx, booking.Equipment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking submitted",
		zap.Int64("booking_id", booking.ID),
		zap.String("reference_code", booking.ReferenceCode),
		zap.Int64("venue_id", booking.VenueID),
		zap.Int64("requester_id", booking.RequesterID),
		zap.Int("equipment_items", len(booking.Equipment)),
	)

	actor := booking.RequesterID
	s.dispatcher.Audit(ctx, newAuditEntry(&actor, model.AuditActionBookingCreated, booking, "",
		fmt.Sprintf("Booking requested: %s", booking.EventTitle)))
	s.dispatcher.NotifyAdmins(ctx, model.NotificationBookingSubmitted, booking)

	return booking, nil
}

// Approve moves a pending booking to approved after re-checking that the
// venue is still free, and records its total cost.
func (s *BookingService) Approve(ctx context.Context, bookingID, adminID int64, notes string) (*model.Booking, error) {
	var booking *model.Booking

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := s.lockPending(ctx, tx, bookingID, "approve")
		if err != nil {
			return err
		}

		if err := tx.LockVenue(ctx, b.VenueID); err != nil {
			return fmt.Errorf("lock venue: %w", err)
		}

		conflict, err := FindConflict(ctx, tx, b.VenueID, b.StartTime, b.EndTime, b.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return &ConflictError{
				Resource: "venue",
				ID:       b.VenueID,
				Reason:   fmt.Sprintf("time slot is held by booking %d", conflict.ID),
			}
		}

		venue, err := tx.GetVenue(ctx, b.VenueID)
		if err != nil {
			return fmt.Errorf("get venue: %w", err)
		}
		if venue == nil {
			return fmt.Errorf("venue %d of booking %d: %w", b.VenueID, b.ID, model.ErrVenueNotFound)
		}
		total := BookingCost(venue, b)

		notes = strings.TrimSpace(notes)
		err = tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusApproved, model.StatusChange{
			AdminNotes:     notes,
			TotalCostCents: &total,
		})
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		b.Status = model.BookingStatusApproved
		b.AdminNotes = notes
		b.TotalCostCents = &total
		booking = b
		return nil
	})
	if err != nil {
		s.logTransitionError("approve", bookingID, err)
		return nil, err
	}

	s.logger.Info("Booking approved",
		zap.Int64("booking_id", bookingID),
		zap.Int64("admin_id", adminID),
		zap.Int64("total_cost_cents", *booking.TotalCostCents),
	)

	s.dispatcher.Audit(ctx, newAuditEntry(&adminID, model.AuditActionBookingApproved, booking, model.BookingStatusPending,
		fmt.Sprintf("Booking approved: %s", booking.EventTitle)))
	s.dispatcher.NotifyRequester(ctx, model.NotificationBookingApproved, booking)

	return booking, nil
}

// Reject moves a pending booking to rejected and returns its equipment to the
// pool. The reason is checked only once the booking is known to be pending.
func (s *BookingService) Reject(ctx context.Context, bookingID, adminID int64, reason string) (*model.Booking, error) {
	booking, err := s.reject(ctx, bookingID, strings.TrimSpace(reason), "reject")
	if err != nil {
		s.logTransitionError("reject", bookingID, err)
		return nil, err
	}

	s.logger.Info("Booking rejected",
		zap.Int64("booking_id", bookingID),
		zap.Int64("admin_id", adminID),
	)

	s.dispatcher.Audit(ctx, newAuditEntry(&adminID, model.AuditActionBookingRejected, booking, model.BookingStatusPending,
		fmt.Sprintf("Booking rejected: %s", booking.EventTitle)))
	s.dispatcher.NotifyRequester(ctx, model.NotificationBookingRejected, booking)

	return booking, nil
}

// Cancel lets the requester withdraw a pending or approved booking.
func (s *BookingService) Cancel(ctx context.Context, bookingID, requesterID int64) (*model.Booking, error) {
	var (
		booking *model.Booking
		before  model.BookingStatus
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b == nil {
			return model.ErrBookingNotFound
		}
		if b.RequesterID != requesterID {
			return fmt.Errorf("%w: booking %d belongs to another user", ErrForbidden, bookingID)
		}
		if !b.Status.HoldsEquipment() {
			return &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "cancel"}
		}

		if err := releaseEquipment(ctx, tx, b.Equipment); err != nil {
			return err
		}

		err = tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusCancelled, model.StatusChange{AdminNotes: b.AdminNotes})
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		before = b.Status
		b.Status = model.BookingStatusCancelled
		booking = b
		return nil
	})
	if err != nil {
		s.logTransitionError("cancel", bookingID, err)
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("requester_id", requesterID),
	)

	s.dispatcher.Audit(ctx, newAuditEntry(&requesterID, model.AuditActionBookingCancelled, booking, before,
		fmt.Sprintf("Booking cancelled: %s", booking.EventTitle)))

	return booking, nil
}

// expire rejects a pending booking whose start time has passed. Only the
// expiry sweeper calls it.
func (s *BookingService) expire(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.reject(ctx, bookingID, model.ExpiredRejectionReason, "expire")
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking expired",
		zap.Int64("booking_id", bookingID),
		zap.Time("start_time", booking.StartTime),
	)

	s.dispatcher.Audit(ctx, newAuditEntry(nil, model.AuditActionBookingExpired, booking, model.BookingStatusPending,
		fmt.Sprintf("Booking expired before approval: %s", booking.EventTitle)))
	s.dispatcher.NotifyRequester(ctx, model.NotificationBookingExpired, booking)

	return booking, nil
}

func (s *BookingService) reject(ctx context.Context, bookingID int64, reason, action string) (*model.Booking, error) {
	var booking *model.Booking

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		b, err := s.lockPending(ctx, tx, bookingID, action)
		if err != nil {
			return err
		}

		if reason == "" {
			var errs ValidationErrors
			errs.add("reason", "rejection reason is required")
			return errs
		}

		if action == "expire" && b.StartTime.After(s.clock.Now()) {
			return &InvalidTransitionError{
				BookingID: b.ID,
				From:      b.Status,
				Action:    action,
				Reason:    "event has not started yet",
			}
		}

		if err := releaseEquipment(ctx, tx, b.Equipment); err != nil {
			return err
		}

		err = tx.UpdateBookingStatus(ctx, b.ID, model.BookingStatusRejected, model.StatusChange{
			AdminNotes:      b.AdminNotes,
			RejectionReason: reason,
		})
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		b.Status = model.BookingStatusRejected
		b.RejectionReason = reason
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

// lockPending loads the booking under a row lock and checks it is still pending.
func (s *BookingService) lockPending(ctx context.Context, tx Tx, bookingID int64, action string) (*model.Booking, error) {
	b, err := tx.GetBookingForUpdate(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, model.ErrBookingNotFound
	}
	if b.Status != model.BookingStatusPending {
		return nil, &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: action}
	}
	return b, nil
}

func (s *BookingService) logTransitionError(action string, bookingID int64, err error) {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		s.logger.Warn("Rejected booking transition",
			zap.String("action", action),
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict),
		errors.Is(err, ErrForbidden), errors.Is(err, model.ErrBookingNotFound):
	default:
		s.logger.Error("Booking transition failed",
			zap.String("action", action),
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
	}
}

// GetByID returns the booking or model.ErrBookingNotFound.
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b == nil {
		return nil, model.ErrBookingNotFound
	}
	return b, nil
}

// GetRequesterBookings returns every booking the user submitted.
func (s *BookingService) GetRequesterBookings(ctx context.Context, requesterID int64) ([]*model.Booking, error) {
	return s.store.ListBookingsByRequester(ctx, requesterID)
}

// GetPendingBookings returns the administrator queue, oldest first.
func (s *BookingService) GetPendingBookings(ctx context.Context) ([]*model.Booking, error) {
	return s.store.ListPendingBookings(ctx)
}

// priceEquipment fixes each line's subtotal at the current rental rate.
func priceEquipment(ctx context.Context, tx Tx, items []model.BookingEquipment) error {
	for i := range items {
		e, err := tx.GetEquipment(ctx, items[i].EquipmentID)
		if err != nil {
			return fmt.Errorf("get equipment %d: %w", items[i].EquipmentID, err)
		}
		items[i].SubtotalCents = EquipmentSubtotal(e, items[i].Quantity)
	}
	return nil
}

func reserveEquipment(ctx context.Context, tx Tx, items []model.BookingEquipment) error {
	for _, item := range items {
		err := tx.AdjustAvailableQuantity(ctx, item.EquipmentID, -item.Quantity)
		if errors.Is(err, model.ErrInsufficientQuantity) {
			return &ConflictError{
				Resource: "equipment",
				ID:       item.EquipmentID,
				Reason:   fmt.Sprintf("cannot reserve %d units", item.Quantity),
				Err:      err,
			}
		}
		if err != nil {
			return fmt.Errorf("reserve equipment %d: %w", item.EquipmentID, err)
		}
	}
	return nil
}

// releaseEquipment returns reserved units to the pool. Overflowing the total
// quantity means the books are already wrong, so the transition aborts.
func releaseEquipment(ctx context.Context, tx Tx, items []model.BookingEquipment) error {
	if err := tx.LockEquipment(ctx, equipmentIDs(items)); err != nil {
		return fmt.Errorf("lock equipment: %w", err)
	}
	for _, item := range items {
		if err := tx.AdjustAvailableQuantity(ctx, item.EquipmentID, item.Quantity); err != nil {
			return fmt.Errorf("release equipment %d: %w", item.EquipmentID, err)
		}
	}
	return nil
}

// equipmentIDs returns the distinct positive ids in ascending order.
func equipmentIDs(items []model.BookingEquipment) []int64 {
	seen := make(map[int64]bool, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.EquipmentID <= 0 || seen[item.EquipmentID] {
			continue
		}
		seen[item.EquipmentID] = true
		ids = append(ids, item.EquipmentID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func newReferenceCode() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return referenceCodePrefix + strings.ToUpper(token[:13])
}

func newAuditEntry(actorID *int64, action string, b *model.Booking, before model.BookingStatus, description string) *model.AuditEntry {
	entry := &model.AuditEntry{
		ActorID:     actorID,
		Action:      action,
		TargetType:  model.AuditTargetBooking,
		TargetID:    b.ID,
		After:       map[string]any{"status": string(b.Status)},
		Description: description,
	}
	if before != "" {
		entry.Before = map[string]any{"status": string(before)}
	}
	if b.RejectionReason != "" {
		entry.After["rejection_reason"] = b.RejectionReason
	}
	if b.AdminNotes != "" {
		entry.After["admin_notes"] = b.AdminNotes
	}
	if b.TotalCostCents != nil {
		entry.After["total_cost_cents"] = *b.TotalCostCents
	}
	return entry
}
