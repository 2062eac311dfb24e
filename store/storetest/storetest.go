// Package storetest checks TripStore implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/store"
	. "github.com/firstpersontravel/charter-sub005/util/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercise runs the same checks against any empty TripStore.
func Exercise(t *testing.T, s store.TripStore) {
	ctx := context.Background()

	_, err := s.GetTrip(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.PutTrip(ctx, &core.Trip{}), store.ErrNoID)

	require.NoError(t, s.PutTrip(ctx, &core.Trip{ID: "b", CurrentSceneName: "ONE"}))
	require.NoError(t, s.PutTrip(ctx, &core.Trip{ID: "a"}))

	trips, err := s.ListTrips(ctx)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "a", trips[0].ID)

	err = s.UpdateTrip(ctx, "b", func(trip *core.Trip) error {
		trip.CurrentSceneName = "TWO"
		return nil
	})
	require.NoError(t, err)
	trip, err := s.GetTrip(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "TWO", trip.CurrentSceneName)

	// Changing what we got doesn't change what's stored.
	trip.CurrentSceneName = "THREE"
	trip, _ = s.GetTrip(ctx, "b")
	assert.Equal(t, "TWO", trip.CurrentSceneName)

	base := At("2017-02-16T21:00:00Z")
	sas := []*core.ScheduledAction{
		{TripID: "b", Name: "signal_cue", ScheduleAt: base.Add(time.Hour)},
		{TripID: "b", Name: "log", ScheduleAt: base},
		{TripID: "a", Name: "log", ScheduleAt: base.Add(time.Minute)},
	}
	require.NoError(t, s.AddScheduled(ctx, sas...))
	for _, sa := range sas {
		assert.NotEmpty(t, sa.ID)
	}

	due, err := s.DueScheduled(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, sas[1].ID, due[0].ID)
	assert.Equal(t, sas[2].ID, due[1].ID)

	pending, err := s.PendingScheduled(ctx, "b")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "log", pending[0].Name)

	require.NoError(t, s.RemoveScheduled(ctx, sas[1].ID))
	pending, _ = s.PendingScheduled(ctx, "b")
	require.Len(t, pending, 1)

	require.NoError(t, s.DeleteTrip(ctx, "b"))
	_, err = s.GetTrip(ctx, "b")
	require.ErrorIs(t, err, store.ErrNotFound)
	pending, _ = s.PendingScheduled(ctx, "b")
	assert.Empty(t, pending)
	require.ErrorIs(t, s.DeleteTrip(ctx, "b"), store.ErrNotFound)
}

