package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/google/uuid"
)

// Memory is a TripStore that keeps copies of everything in maps.
type Memory struct {
	sync.Mutex
	trips     map[string][]byte
	scheduled map[string]*core.ScheduledAction
}

func NewMemory() *Memory {
	return &Memory{
		trips:     make(map[string][]byte, 8),
		scheduled: make(map[string]*core.ScheduledAction, 32),
	}
}

func (m *Memory) GetTrip(ctx context.Context, id string) (*core.Trip, error) {
	m.Lock()
	defer m.Unlock()
	return m.get(id)
}

func (m *Memory) get(id string) (*core.Trip, error) {
	js, have := m.trips[id]
	if !have {
		return nil, ErrNotFound
	}
	var trip core.Trip
	if err := json.Unmarshal(js, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func (m *Memory) put(trip *core.Trip) error {
	if trip.ID == "" {
		return ErrNoID
	}
	js, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	m.trips[trip.ID] = js
	return nil
}

func (m *Memory) PutTrip(ctx context.Context, trip *core.Trip) error {
	m.Lock()
	defer m.Unlock()
	return m.put(trip)
}

func (m *Memory) UpdateTrip(ctx context.Context, id string, f func(*core.Trip) error) error {
	m.Lock()
	defer m.Unlock()
	trip, err := m.get(id)
	if err != nil {
		return err
	}
	if err = f(trip); err != nil {
		return err
	}
	trip.ID = id
	return m.put(trip)
}

func (m *Memory) ListTrips(ctx context.Context) ([]*core.Trip, error) {
	m.Lock()
	defer m.Unlock()
	ids := make([]string, 0, len(m.trips))
	for id := range m.trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	acc := make([]*core.Trip, 0, len(ids))
	for _, id := range ids {
		trip, err := m.get(id)
		if err != nil {
			return nil, err
		}
		acc = append(acc, trip)
	}
	return acc, nil
}

func (m *Memory) DeleteTrip(ctx context.Context, id string) error {
	m.Lock()
	defer m.Unlock()
	if _, have := m.trips[id]; !have {
		return ErrNotFound
	}
	delete(m.trips, id)
	for sid, sa := range m.scheduled {
		if sa.TripID == id {
			delete(m.scheduled, sid)
		}
	}
	return nil
}

func (m *Memory) AddScheduled(ctx context.Context, sas ...*core.ScheduledAction) error {
	m.Lock()
	defer m.Unlock()
	for _, sa := range sas {
		if sa.ID == "" {
			sa.ID = uuid.NewString()
		}
		c := *sa
		m.scheduled[sa.ID] = &c
	}
	return nil
}

func (m *Memory) DueScheduled(ctx context.Context, before time.Time) ([]*core.ScheduledAction, error) {
	return m.scheduledWhere(func(sa *core.ScheduledAction) bool {
		return !sa.ScheduleAt.After(before)
	}), nil
}

func (m *Memory) PendingScheduled(ctx context.Context, tripID string) ([]*core.ScheduledAction, error) {
	return m.scheduledWhere(func(sa *core.ScheduledAction) bool {
		return sa.TripID == tripID
	}), nil
}

func (m *Memory) scheduledWhere(pred func(*core.ScheduledAction) bool) []*core.ScheduledAction {
	m.Lock()
	defer m.Unlock()
	acc := make([]*core.ScheduledAction, 0, len(m.scheduled))
	for _, sa := range m.scheduled {
		if pred(sa) {
			c := *sa
			acc = append(acc, &c)
		}
	}
	SortScheduled(acc)
	return acc
}

func (m *Memory) RemoveScheduled(ctx context.Context, ids ...string) error {
	m.Lock()
	defer m.Unlock()
	for _, id := range ids {
		delete(m.scheduled, id)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
