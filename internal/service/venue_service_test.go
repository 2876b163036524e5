package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	hallB  int64 = 11
	studio int64 = 12
	closed int64 = 13
)

func newVenueEnv(t *testing.T) (*memStore, *VenueService) {
	t.Helper()

	store := newMemStore()
	store.addVenue(&model.Venue{ID: hallA, Name: "Hall A", Capacity: 200, IsActive: true})
	store.addVenue(&model.Venue{ID: hallB, Name: "Hall B", Capacity: 120, IsActive: true})
	store.addVenue(&model.Venue{ID: studio, Name: "Studio", Capacity: 20, IsActive: true})
	store.addVenue(&model.Venue{ID: closed, Name: "Old Gym", Capacity: 500, IsActive: false})

	return store, NewVenueService(store, zap.NewNop())
}

func venueIDs(venues []*model.Venue) []int64 {
	ids := make([]int64, 0, len(venues))
	for _, v := range venues {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestVenueService_Available(t *testing.T) {
	store, venues := newVenueEnv(t)
	store.addBooking(&model.Booking{VenueID: hallA, StartTime: at(1, 10, 0), EndTime: at(1, 12, 0), Status: model.BookingStatusApproved})
	store.addBooking(&model.Booking{VenueID: hallB, StartTime: at(1, 11, 0), EndTime: at(1, 13, 0), Status: model.BookingStatusPending})
	store.addBooking(&model.Booking{VenueID: studio, StartTime: at(1, 10, 0), EndTime: at(1, 12, 0), Status: model.BookingStatusRejected})

	got, err := venues.Available(context.Background(), VenueSearch{StartTime: at(1, 10, 0), EndTime: at(1, 12, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{studio}, venueIDs(got))

	// Back to back with both holds.
	got, err = venues.Available(context.Background(), VenueSearch{StartTime: at(1, 13, 0), EndTime: at(1, 15, 0)})
	require.NoError(t, err)
	assert.Equal(t, []int64{hallA, hallB, studio}, venueIDs(got))

	got, err = venues.Available(context.Background(), VenueSearch{StartTime: at(1, 13, 0), EndTime: at(1, 15, 0), MinCapacity: 150})
	require.NoError(t, err)
	assert.Equal(t, []int64{hallA}, venueIDs(got))
}

func TestVenueService_AvailableRejectsBadWindow(t *testing.T) {
	_, venues := newVenueEnv(t)

	tests := []struct {
		name   string
		search VenueSearch
		fields []string
	}{
		{"missing times", VenueSearch{}, []string{"start_time", "end_time"}},
		{"inverted", VenueSearch{StartTime: at(1, 12, 0), EndTime: at(1, 10, 0)}, []string{"end_time"}},
		{"empty", VenueSearch{StartTime: at(1, 12, 0), EndTime: at(1, 12, 0)}, []string{"end_time"}},
		{"negative capacity", VenueSearch{StartTime: at(1, 10, 0), EndTime: at(1, 12, 0), MinCapacity: -1}, []string{"min_capacity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := venues.Available(context.Background(), tt.search)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.fields, verrs.Fields())
		})
	}
}

func TestVenueService_GetByID(t *testing.T) {
	_, venues := newVenueEnv(t)

	v, err := venues.GetByID(context.Background(), hallB)
	require.NoError(t, err)
	assert.Equal(t, "Hall B", v.Name)

	_, err = venues.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, model.ErrVenueNotFound)
}
