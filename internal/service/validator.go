package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

const (
	MinBookingDuration = 30 * time.Minute
	MaxBookingDuration = 7 * 24 * time.Hour

	minTitleLength       = 3
	maxTitleLength       = 255
	maxDescriptionLength = 2000
	maxAttendees         = 10000
)

// BookingRequest is an organizer's submission before it becomes a booking.
type BookingRequest struct {
	VenueID           int64                    `json:"venue_id"`
	RequesterID       int64                    `json:"requester_id"`
	EventTitle        string                   `json:"event_title"`
	EventDescription  string                   `json:"event_description"`
	StartTime         time.Time                `json:"start_time"`
	EndTime           time.Time                `json:"end_time"`
	ExpectedAttendees int                      `json:"expected_attendees"`
	Equipment         []model.BookingEquipment `json:"equipment"`
}

type Validator struct {
	clock Clock
}

func NewValidator(clock Clock) *Validator {
	return &Validator{clock: clock}
}

// Validate runs every admission check and returns all problems found. The
// error return is reserved for store failures.
func (v *Validator) Validate(ctx context.Context, src Reader, req BookingRequest) (ValidationErrors, error) {
	var errs ValidationErrors

	windowOK := v.checkStructure(&errs, req)
	if windowOK {
		checkDuration(&errs, req.StartTime, req.EndTime)
	}

	if err := v.checkVenue(ctx, &errs, src, req, windowOK); err != nil {
		return nil, err
	}

	if err := checkEquipmentItems(ctx, &errs, src, req.Equipment); err != nil {
		return nil, err
	}

	return errs, nil
}

// checkStructure reports whether the time window is usable for the
// duration and availability checks.
func (v *Validator) checkStructure(errs *ValidationErrors, req BookingRequest) bool {
	if req.RequesterID <= 0 {
		errs.add("requester_id", "requester is required")
	}
	if req.VenueID <= 0 {
		errs.add("venue_id", "please select a venue for your event")
	}

	title := strings.TrimSpace(req.EventTitle)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		errs.add("event_title", "event title is required")
	case n < minTitleLength:
		errs.add("event_title", fmt.Sprintf("event title must be at least %d characters", minTitleLength))
	case n > maxTitleLength:
		errs.add("event_title", fmt.Sprintf("event title must not exceed %d characters", maxTitleLength))
	}

	if utf8.RuneCountInString(req.EventDescription) > maxDescriptionLength {
		errs.add("event_description", fmt.Sprintf("event description must not exceed %d characters", maxDescriptionLength))
	}

	if req.ExpectedAttendees < 1 {
		errs.add("expected_attendees", "there must be at least 1 attendee")
	} else if req.ExpectedAttendees > maxAttendees {
		errs.add("expected_attendees", fmt.Sprintf("expected attendees must not exceed %d", maxAttendees))
	}

	windowOK := true
	if req.StartTime.IsZero() {
		errs.add("start_time", "start date and time is required")
		windowOK = false
	} else if !req.StartTime.After(v.clock.Now()) {
		errs.add("start_time", "event must be scheduled for a future date")
	}

	if req.EndTime.IsZero() {
		errs.add("end_time", "end date and time is required")
		windowOK = false
	} else if windowOK && !req.EndTime.After(req.StartTime) {
		errs.add("end_time", "end time must be after start time")
		windowOK = false
	}

	seen := make(map[int64]bool, len(req.Equipment))
	for i, item := range req.Equipment {
		if item.EquipmentID <= 0 {
			errs.add(equipmentField(i, "equipment_id"), "equipment is required")
		} else if seen[item.EquipmentID] {
			errs.add(equipmentField(i, "equipment_id"), "equipment is listed more than once")
		}
		seen[item.EquipmentID] = true

		if item.Quantity < 1 {
			errs.add(equipmentField(i, "quantity"), "equipment quantity must be at least 1")
		}
	}

	return windowOK
}

// checkDuration bounds are inclusive: exactly 30 minutes and exactly 7 days pass.
func checkDuration(errs *ValidationErrors, start, end time.Time) {
	d := end.Sub(start)
	if d > MaxBookingDuration {
		errs.add("end_time", "booking duration cannot exceed 7 days, please book multiple slots if needed")
	}
	if d < MinBookingDuration {
		errs.add("end_time", "booking duration must be at least 30 minutes")
	}
}

func (v *Validator) checkVenue(ctx context.Context, errs *ValidationErrors, src Reader, req BookingRequest, windowOK bool) error {
	if req.VenueID <= 0 {
		return nil
	}

	venue, err := src.GetVenue(ctx, req.VenueID)
	if err != nil {
		return fmt.Errorf("get venue %d: %w", req.VenueID, err)
	}
	if venue == nil {
		errs.add("venue_id", "the selected venue does not exist")
		return nil
	}
	if !venue.IsActive {
		errs.add("venue_id", "the selected venue is not available")
		return nil
	}

	if req.ExpectedAttendees > venue.Capacity {
		errs.add("expected_attendees", fmt.Sprintf("%s holds at most %d attendees", venue.Name, venue.Capacity))
	}

	if !windowOK {
		return nil
	}

	conflict, err := FindConflict(ctx, src, venue.ID, req.StartTime, req.EndTime, 0)
	if err != nil {
		return err
	}
	if conflict != nil {
		errs.addConflict("venue_id", fmt.Sprintf("%s is already booked for the selected time period", venue.Name))
	}

	return nil
}

func checkEquipmentItems(ctx context.Context, errs *ValidationErrors, src EquipmentGetter, items []model.BookingEquipment) error {
	// Malformed lines are already reported by the structural check.
	var (
		checked []model.BookingEquipment
		indexes []int
	)
	seen := make(map[int64]bool, len(items))
	for i, item := range items {
		if item.EquipmentID <= 0 || item.Quantity < 1 || seen[item.EquipmentID] {
			continue
		}
		seen[item.EquipmentID] = true
		checked = append(checked, item)
		indexes = append(indexes, i)
	}
	if len(checked) == 0 {
		return nil
	}

	violations, err := CheckEquipment(ctx, src, checked)
	if err != nil {
		return err
	}

	for _, v := range violations {
		i := indexes[v.Index]
		switch v.Reason {
		case EquipmentNotFound:
			errs.add(equipmentField(i, "equipment_id"), "selected equipment does not exist")
		case EquipmentInactive:
			errs.add(equipmentField(i, "equipment_id"), fmt.Sprintf("%s is not available", v.Name))
		case EquipmentInsufficient:
			errs.addConflict(equipmentField(i, "quantity"), fmt.Sprintf(
				"only %d units of %s are available, you requested %d (short by %d)",
				v.Available, v.Name, v.Requested, v.Shortfall,
			))
		}
	}

	return nil
}

func equipmentField(index int, name string) string {
	return fmt.Sprintf("equipment[%d].%s", index, name)
}
