// Package store persists trips and the actions scheduled for them.
//
// A store never interprets a script.  The service applies a
// dispatch's folded ops with Apply and hands the result back with
// PutTrip or UpdateTrip.
package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
)

var (
	// ErrNotFound is returned for a missing trip.
	ErrNotFound = errors.New("not found")

	// ErrNoID is returned when a trip without an id is stored.
	ErrNoID = errors.New("trip has no id")
)

// TripStore is a persistence interface for trips and their pending
// ScheduledActions.
type TripStore interface {
	GetTrip(ctx context.Context, id string) (*core.Trip, error)

	PutTrip(ctx context.Context, trip *core.Trip) error

	// UpdateTrip loads the trip, calls the function, and writes the
	// trip back unless the function returns an error.  Updates of
	// one trip do not interleave.
	UpdateTrip(ctx context.Context, id string, f func(*core.Trip) error) error

	ListTrips(ctx context.Context) ([]*core.Trip, error)

	// DeleteTrip removes the trip and its scheduled actions.
	DeleteTrip(ctx context.Context, id string) error

	// AddScheduled stores actions, assigning ids to the ones
	// without.
	AddScheduled(ctx context.Context, sas ...*core.ScheduledAction) error

	// DueScheduled returns the actions scheduled at or before the
	// given time, earliest first.
	DueScheduled(ctx context.Context, before time.Time) ([]*core.ScheduledAction, error)

	PendingScheduled(ctx context.Context, tripID string) ([]*core.ScheduledAction, error)

	RemoveScheduled(ctx context.Context, ids ...string) error

	Close() error
}

// SortScheduled orders actions by time, then id.
func SortScheduled(sas []*core.ScheduledAction) {
	sort.SliceStable(sas, func(i, j int) bool {
		a, b := sas[i], sas[j]
		if a.ScheduleAt.Equal(b.ScheduleAt) {
			return a.ID < b.ID
		}
		return a.ScheduleAt.Before(b.ScheduleAt)
	})
}
