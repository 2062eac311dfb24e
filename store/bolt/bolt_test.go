package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/store"
	"github.com/firstpersontravel/charter-sub005/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	var _ store.TripStore = &Storage{}
}

func open(t *testing.T, filename string) *Storage {
	s := NewStorage(filename)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestBasics(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "trips.db"))
	defer s.Close()
	storetest.Exercise(t, s)
}

func TestReopen(t *testing.T) {
	var (
		ctx      = context.Background()
		filename = filepath.Join(t.TempDir(), "trips.db")
	)

	s := open(t, filename)
	require.NoError(t, s.PutTrip(ctx, &core.Trip{
		ID:     "simpsons",
		Values: map[string]interface{}{"likes": "tacos"},
	}))
	require.NoError(t, s.AddScheduled(ctx, &core.ScheduledAction{
		TripID: "simpsons",
		Name:   "signal_cue",
		Params: core.Params{"cue_name": "LUNCH"},
	}))
	require.NoError(t, s.Close())

	s = open(t, filename)
	defer s.Close()

	trip, err := s.GetTrip(ctx, "simpsons")
	require.NoError(t, err)
	assert.Equal(t, "tacos", trip.Values["likes"])

	pending, err := s.PendingScheduled(ctx, "simpsons")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "LUNCH", pending[0].Params.String("cue_name"))
}
