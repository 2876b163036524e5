package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(t *testing.T, env *testEnv, req BookingRequest) ValidationErrors {
	t.Helper()
	errs, err := NewValidator(env.clock).Validate(context.Background(), env.store, req)
	require.NoError(t, err)
	return errs
}

func TestValidate_AcceptsValidRequest(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.Equipment = []model.BookingEquipment{{EquipmentID: projector, Quantity: 2}, {EquipmentID: mic, Quantity: 4}}

	assert.Empty(t, validate(t, env, req))
}

func TestValidate_CollectsEveryFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.addBooking(&model.Booking{VenueID: hallA, StartTime: at(1, 10, 0), EndTime: at(1, 12, 0), Status: model.BookingStatusApproved})

	req := validRequest()
	req.EventTitle = "ab"
	req.ExpectedAttendees = 500
	req.StartTime = at(1, 11, 0)
	req.EndTime = at(1, 11, 15)
	req.Equipment = []model.BookingEquipment{{EquipmentID: projector, Quantity: 3}, {EquipmentID: mic, Quantity: 0}}

	errs := validate(t, env, req)

	assert.ElementsMatch(t, []string{
		"event_title",
		"expected_attendees",
		"end_time",
		"venue_id",
		"equipment[0].quantity",
		"equipment[1].quantity",
	}, errs.Fields())
	assert.True(t, errs.HasConflict())
	assert.True(t, errors.Is(errs, ErrConflict))
	assert.False(t, errors.Is(errs, ErrValidation))
}

func TestValidate_DurationBounds(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		wantErr  bool
	}{
		{"exactly 30 minutes", 30 * time.Minute, false},
		{"just under 30 minutes", 30*time.Minute - time.Second, true},
		{"exactly 7 days", 7 * 24 * time.Hour, false},
		{"just over 7 days", 7*24*time.Hour + time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := validRequest()
			req.EndTime = req.StartTime.Add(tt.duration)

			errs := validate(t, env, req)
			if tt.wantErr {
				assert.Equal(t, []string{"end_time"}, errs.Fields())
				assert.True(t, errors.Is(errs, ErrValidation))
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_StartMustBeStrictlyInFuture(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.StartTime = env.clock.Now()
	req.EndTime = req.StartTime.Add(time.Hour)
	assert.Equal(t, []string{"start_time"}, validate(t, env, req).Fields())

	req.StartTime = env.clock.Now().Add(time.Second)
	req.EndTime = req.StartTime.Add(time.Hour)
	assert.Empty(t, validate(t, env, req))
}

func TestValidate_InvertedWindowSkipsDurationAndAvailability(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.StartTime, req.EndTime = req.EndTime, req.StartTime

	errs := validate(t, env, req)
	require.Len(t, errs, 1)
	assert.Equal(t, "end_time", errs[0].Field)
	assert.Equal(t, "end time must be after start time", errs[0].Message)
}

func TestValidate_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	errs := validate(t, env, BookingRequest{})

	assert.ElementsMatch(t, []string{
		"requester_id",
		"venue_id",
		"event_title",
		"expected_attendees",
		"start_time",
		"end_time",
	}, errs.Fields())
}

func TestValidate_VenueRules(t *testing.T) {
	env := newTestEnv(t)
	env.store.addVenue(&model.Venue{ID: 11, Name: "Old Gym", Capacity: 100, IsActive: false})

	req := validRequest()
	req.VenueID = 11
	errs := validate(t, env, req)
	require.Len(t, errs, 1)
	assert.Equal(t, "venue_id", errs[0].Field)
	assert.False(t, errs[0].Conflict)

	req.VenueID = 404
	errs = validate(t, env, req)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "does not exist")
}

func TestValidate_TextLimits(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.EventTitle = strings.Repeat("a", 256)
	req.EventDescription = strings.Repeat("d", 2001)

	assert.ElementsMatch(t, []string{"event_title", "event_description"}, validate(t, env, req).Fields())
}

func TestValidate_DuplicateAndUnknownEquipment(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.Equipment = []model.BookingEquipment{
		{EquipmentID: mic, Quantity: 1},
		{EquipmentID: mic, Quantity: 2},
		{EquipmentID: 404, Quantity: 1},
	}

	errs := validate(t, env, req)
	assert.ElementsMatch(t, []string{"equipment[1].equipment_id", "equipment[2].equipment_id"}, errs.Fields())
	assert.False(t, errs.HasConflict())
}
