package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirySweeper_ExpiresOverduePendingBooking(t *testing.T) {
	env := newTestEnv(t)

	req := validRequest()
	req.Equipment = []model.BookingEquipment{{EquipmentID: projector, Quantity: 2}}
	b := submit(t, env, req)
	require.Equal(t, 0, env.store.available(projector))

	// The event started yesterday and nobody acted on the request.
	env.clock.now = b.StartTime.Add(24 * time.Hour)

	result, err := env.sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Expired)
	assert.Empty(t, result.Failures)

	expired := env.store.booking(b.ID)
	assert.Equal(t, model.BookingStatusRejected, expired.Status)
	assert.Equal(t, model.ExpiredRejectionReason, expired.RejectionReason)
	assert.Equal(t, 2, env.store.available(projector))

	assert.Contains(t, env.notifier.kinds(), model.NotificationBookingExpired)
	last := env.auditor.entries[len(env.auditor.entries)-1]
	assert.Equal(t, model.AuditActionBookingExpired, last.Action)
	assert.Nil(t, last.ActorID)
}

func TestExpirySweeper_SecondRunFindsNothing(t *testing.T) {
	env := newTestEnv(t)
	first := submit(t, env, validRequest())
	req := validRequest()
	req.StartTime, req.EndTime = at(2, 10, 0), at(2, 12, 0)
	second := submit(t, env, req)

	env.clock.now = at(3, 0, 0)
	ctx := context.Background()

	result, err := env.sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired)

	result, err = env.sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Found)
	assert.Equal(t, 0, result.Expired)

	expiredCount := 0
	for _, n := range env.notifier.kinds() {
		if n == model.NotificationBookingExpired {
			expiredCount++
		}
	}
	assert.Equal(t, 2, expiredCount, "each booking is expired exactly once")
	assert.Equal(t, model.BookingStatusRejected, env.store.booking(first.ID).Status)
	assert.Equal(t, model.BookingStatusRejected, env.store.booking(second.ID).Status)
}

func TestExpirySweeper_LeavesOtherBookingsAlone(t *testing.T) {
	env := newTestEnv(t)
	future := submit(t, env, validRequest())

	req := validRequest()
	req.StartTime, req.EndTime = at(2, 10, 0), at(2, 12, 0)
	approved := submit(t, env, req)
	_, err := env.bookings.Approve(context.Background(), approved.ID, adminID, "")
	require.NoError(t, err)

	env.clock.now = at(1, 10, 0).Add(-time.Minute)
	result, err := env.sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Found)

	env.clock.now = at(3, 0, 0)
	result, err = env.sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
	assert.Equal(t, model.BookingStatusRejected, env.store.booking(future.ID).Status)
	assert.Equal(t, model.BookingStatusApproved, env.store.booking(approved.ID).Status)
}

func TestExpirySweeper_StartEqualToNowIsOverdue(t *testing.T) {
	env := newTestEnv(t)
	b := submit(t, env, validRequest())

	env.clock.now = b.StartTime
	result, err := env.sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)
}

func TestExpirySweeper_ContinuesAfterFailure(t *testing.T) {
	env := newTestEnv(t)
	broken := submit(t, env, validRequest())
	req := validRequest()
	req.StartTime, req.EndTime = at(2, 10, 0), at(2, 12, 0)
	healthy := submit(t, env, req)

	env.store.failStatusUpdate[broken.ID] = errors.New("deadlock detected")
	env.clock.now = at(3, 0, 0)

	result, err := env.sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Found)
	assert.Equal(t, 1, result.Expired)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, broken.ID, result.Failures[0].BookingID)
	assert.Contains(t, result.Failures[0].Error, "deadlock detected")

	assert.Equal(t, model.BookingStatusPending, env.store.booking(broken.ID).Status)
	assert.Equal(t, model.BookingStatusRejected, env.store.booking(healthy.ID).Status)
}

func TestExpirySweeper_LookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.failFindExpired = errors.New("database is down")

	result, err := env.sweeper.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestExpire_RefusesBookingThatHasNotStarted(t *testing.T) {
	env := newTestEnv(t)
	b := submit(t, env, validRequest())

	_, err := env.bookings.expire(context.Background(), b.ID)

	var invalid *InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "expire", invalid.Action)
	assert.Equal(t, model.BookingStatusPending, env.store.booking(b.ID).Status)
}
