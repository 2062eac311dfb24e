/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a TripStore backed by a bbolt file.
//
// Trips live in the "trips" bucket and scheduled actions in the
// "scheduled" bucket, both as JSON keyed by id.
package bolt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/store"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	tripsBucket     = []byte("trips")
	scheduledBucket = []byte("scheduled")
)

type Storage struct {
	Logger   *zap.Logger
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) *Storage {
	return &Storage{
		Logger:   zap.NewNop(),
		filename: filename,
	}
}

// Open opens (or creates) the file and its buckets.
func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{tripsBucket, scheduledBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}
	s.db = db
	s.Logger.Debug("opened", zap.String("file", s.filename))
	return nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func getTrip(tx *bolt.Tx, id string) (*core.Trip, error) {
	bs := tx.Bucket(tripsBucket).Get([]byte(id))
	if bs == nil {
		return nil, store.ErrNotFound
	}
	var trip core.Trip
	if err := json.Unmarshal(bs, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func putTrip(tx *bolt.Tx, trip *core.Trip) error {
	if trip.ID == "" {
		return store.ErrNoID
	}
	js, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	return tx.Bucket(tripsBucket).Put([]byte(trip.ID), js)
}

func (s *Storage) GetTrip(ctx context.Context, id string) (*core.Trip, error) {
	var trip *core.Trip
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		trip, err = getTrip(tx, id)
		return err
	})
	return trip, err
}

func (s *Storage) PutTrip(ctx context.Context, trip *core.Trip) error {
	s.Logger.Debug("PutTrip", zap.String("trip", trip.ID))
	return s.db.Update(func(tx *bolt.Tx) error {
		return putTrip(tx, trip)
	})
}

// UpdateTrip runs the function inside one bolt write transaction,
// which bolt serializes.
func (s *Storage) UpdateTrip(ctx context.Context, id string, f func(*core.Trip) error) error {
	s.Logger.Debug("UpdateTrip", zap.String("trip", id))
	return s.db.Update(func(tx *bolt.Tx) error {
		trip, err := getTrip(tx, id)
		if err != nil {
			return err
		}
		if err = f(trip); err != nil {
			return err
		}
		trip.ID = id
		return putTrip(tx, trip)
	})
}

func (s *Storage) ListTrips(ctx context.Context) ([]*core.Trip, error) {
	trips := make([]*core.Trip, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tripsBucket).ForEach(func(id, bs []byte) error {
			var trip core.Trip
			if err := json.Unmarshal(bs, &trip); err != nil {
				return err
			}
			trips = append(trips, &trip)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return trips, nil
}

func (s *Storage) DeleteTrip(ctx context.Context, id string) error {
	s.Logger.Debug("DeleteTrip", zap.String("trip", id))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(tripsBucket)
		if b.Get([]byte(id)) == nil {
			return store.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}
		return removeScheduledWhere(tx, func(sa *core.ScheduledAction) bool {
			return sa.TripID == id
		})
	})
}

func (s *Storage) AddScheduled(ctx context.Context, sas ...*core.ScheduledAction) error {
	if len(sas) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(scheduledBucket)
		for _, sa := range sas {
			if sa.ID == "" {
				sa.ID = uuid.NewString()
			}
			js, err := json.Marshal(sa)
			if err != nil {
				return err
			}
			if err = b.Put([]byte(sa.ID), js); err != nil {
				return err
			}
			s.Logger.Debug("AddScheduled",
				zap.String("trip", sa.TripID),
				zap.String("id", sa.ID),
				zap.String("action", sa.Name),
				zap.Time("at", sa.ScheduleAt))
		}
		return nil
	})
}

func (s *Storage) scheduledWhere(pred func(*core.ScheduledAction) bool) ([]*core.ScheduledAction, error) {
	acc := make([]*core.ScheduledAction, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(scheduledBucket).ForEach(func(id, bs []byte) error {
			var sa core.ScheduledAction
			if err := json.Unmarshal(bs, &sa); err != nil {
				return err
			}
			if pred(&sa) {
				acc = append(acc, &sa)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	store.SortScheduled(acc)
	return acc, nil
}

func (s *Storage) DueScheduled(ctx context.Context, before time.Time) ([]*core.ScheduledAction, error) {
	return s.scheduledWhere(func(sa *core.ScheduledAction) bool {
		return !sa.ScheduleAt.After(before)
	})
}

func (s *Storage) PendingScheduled(ctx context.Context, tripID string) ([]*core.ScheduledAction, error) {
	return s.scheduledWhere(func(sa *core.ScheduledAction) bool {
		return sa.TripID == tripID
	})
}

func (s *Storage) RemoveScheduled(ctx context.Context, ids ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(scheduledBucket)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// removeScheduledWhere collects keys first since bolt forbids
// deleting during ForEach.
func removeScheduledWhere(tx *bolt.Tx, pred func(*core.ScheduledAction) bool) error {
	b := tx.Bucket(scheduledBucket)
	var doomed [][]byte
	err := b.ForEach(func(id, bs []byte) error {
		var sa core.ScheduledAction
		if err := json.Unmarshal(bs, &sa); err != nil {
			return err
		}
		if pred(&sa) {
			doomed = append(doomed, append([]byte{}, id...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range doomed {
		if err := b.Delete(id); err != nil {
			return err
		}
	}
	return nil
}
