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

// Package service runs trips: it loads a trip, asks the kernel what
// an event or action does, applies the result to the stored trip,
// keeps scheduled actions, and tells subscribers about the ops
// nobody has carried out yet.
//
// The kernel is pure.  The Service is where the clock is read, state
// is written, and Log ops turn into log lines.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/geo"
	"github.com/firstpersontravel/charter-sub005/modules/locations"
	"github.com/firstpersontravel/charter-sub005/modules/times"
	"github.com/firstpersontravel/charter-sub005/scheduler"
	"github.com/firstpersontravel/charter-sub005/store"

	"go.uber.org/zap"
)

var (
	ErrNoScript    = errors.New("no script")
	ErrNoPlayer    = errors.New("no such player")
	ErrNoScheduler = errors.New("no scheduler")
)

// Published is what subscribers hear after a trip changes.  Ops
// holds every op of the dispatch, in order.
type Published struct {
	TripID    string                  `json:"tripId"`
	Ops       core.Ops                `json:"ops"`
	Scheduled []*core.ScheduledAction `json:"scheduled,omitempty"`
}

type Service struct {
	Store    store.TripStore
	Registry *core.Registry
	Env      *core.Env
	Logger   *zap.Logger
	Metrics  *Metrics

	// Clock is the only source of the current time.
	Clock func() time.Time

	// Scheduler, when given, runs scheduled actions on time.
	// Without one, call FireDue.
	Scheduler *scheduler.Scheduler

	// Timezone is used for trips that don't name one.
	Timezone string

	// TickInterval is how often Run sweeps for due actions and
	// emits time_occurred.
	TickInterval time.Duration

	kernel *core.Kernel

	scriptsMu sync.RWMutex
	scripts   map[string]*core.ScriptContent

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	subsMu sync.Mutex
	subs   map[int]chan *Published
	nextID int

	tickMu   sync.Mutex
	lastTick time.Time
}

func New(s store.TripStore, r *core.Registry) *Service {
	return &Service{
		Store:        s,
		Registry:     r,
		Env:          &core.Env{},
		Logger:       zap.NewNop(),
		Clock:        func() time.Time { return time.Now().UTC() },
		TickInterval: time.Minute,
		kernel:       core.NewKernel(r),
		scripts:      make(map[string]*core.ScriptContent, 8),
		locks:        make(map[string]*sync.Mutex, 8),
		subs:         make(map[int]chan *Published, 4),
	}
}

// AddScript validates the script and makes it available to trips
// with the given script name.
func (s *Service) AddScript(name string, script *core.ScriptContent) error {
	if err := s.Registry.ValidateScript(script); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	s.scriptsMu.Lock()
	s.scripts[name] = script
	s.scriptsMu.Unlock()
	s.Logger.Info("script loaded", zap.String("script", name), zap.Int("triggers", len(script.Triggers)))
	return nil
}

func (s *Service) Script(name string) (*core.ScriptContent, bool) {
	s.scriptsMu.RLock()
	defer s.scriptsMu.RUnlock()
	script, have := s.scripts[name]
	return script, have
}

// lock returns the trip's mutex, locked.
func (s *Service) lock(tripID string) *sync.Mutex {
	s.locksMu.Lock()
	l, have := s.locks[tripID]
	if !have {
		l = &sync.Mutex{}
		s.locks[tripID] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	return l
}

// load gets the trip and its script and builds the ActionContext.
func (s *Service) load(ctx context.Context, tripID, roleName string, now time.Time) (*core.Trip, *core.ActionContext, error) {
	trip, err := s.Store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, nil, fmt.Errorf("trip %s: %w", tripID, err)
	}
	script, have := s.Script(trip.ScriptName)
	if !have {
		return nil, nil, fmt.Errorf("trip %s script %q: %w", tripID, trip.ScriptName, ErrNoScript)
	}
	ac := &core.ActionContext{
		ScriptContent:      script,
		EvalContext:        core.GatherEvalContext(s.Env, script, trip),
		EvaluateAt:         now,
		Timezone:           trip.Timezone,
		TriggeringRoleName: roleName,
	}
	if ac.Timezone == "" {
		ac.Timezone = s.Timezone
	}
	if p := trip.PlayerForRole(roleName); p != nil {
		ac.TriggeringPlayerID = p.ID
	}
	return trip, ac, nil
}

// Dispatch fires the event at the trip.
func (s *Service) Dispatch(ctx context.Context, tripID string, event core.Params, roleName string) (*core.Result, error) {
	l := s.lock(tripID)
	defer l.Unlock()
	return s.dispatch(ctx, tripID, event, roleName, s.Clock())
}

func (s *Service) dispatch(ctx context.Context, tripID string, event core.Params, roleName string, now time.Time) (*core.Result, error) {
	log := s.Logger.With(zap.String("trip", tripID), zap.String("event", event.Type()))
	log.Debug("dispatch", zap.Any("payload", event))

	then := time.Now()
	trip, ac, err := s.load(ctx, tripID, roleName, now)
	if err != nil {
		return nil, s.failed(log, err)
	}
	result, err := s.kernel.ResultForEvent(event, ac)
	if err != nil {
		return nil, s.failed(log, err)
	}
	if err = s.commit(ctx, trip, result, nil); err != nil {
		return nil, s.failed(log, err)
	}
	s.Metrics.ObserveDispatch(time.Since(then))
	return result, nil
}

// RunAction runs an action now, for example from an operator's
// console.  The action's own Params are used as given.
func (s *Service) RunAction(ctx context.Context, tripID string, action *core.ScheduledAction, roleName string) (*core.Result, error) {
	l := s.lock(tripID)
	defer l.Unlock()

	log := s.Logger.With(zap.String("trip", tripID), zap.String("action", action.Name))

	then := time.Now()
	trip, ac, err := s.load(ctx, tripID, roleName, s.Clock())
	if err != nil {
		return nil, s.failed(log, err)
	}
	result, err := s.kernel.ResultForImmediateAction(action, ac)
	if err != nil {
		return nil, s.failed(log, err)
	}
	if err = s.commit(ctx, trip, result, nil); err != nil {
		return nil, s.failed(log, err)
	}
	s.Metrics.ObserveDispatch(time.Since(then))
	return result, nil
}

func (s *Service) failed(log *zap.Logger, err error) error {
	s.Metrics.IncErrors()
	log.Error("dispatch failed", zap.Error(err))
	return err
}

// commit applies the result to the trip, stores it and its
// scheduled actions, and publishes.  Done scheduled actions are
// removed in the same step.
func (s *Service) commit(ctx context.Context, trip *core.Trip, result *core.Result, done []string) error {
	unapplied := store.Apply(trip, result.ResultOps)
	if err := s.Store.PutTrip(ctx, trip); err != nil {
		return err
	}
	if 0 < len(done) {
		if err := s.Store.RemoveScheduled(ctx, done...); err != nil {
			return err
		}
	}

	for _, sa := range result.ScheduledActions {
		sa.TripID = trip.ID
	}
	if err := s.Store.AddScheduled(ctx, result.ScheduledActions...); err != nil {
		return err
	}
	for _, sa := range result.ScheduledActions {
		s.schedule(sa)
	}

	log := s.Logger.With(zap.String("trip", trip.ID))
	for _, op := range result.ResultOps {
		s.Metrics.CountOp(op.Operation())
	}
	for _, op := range unapplied {
		if l, is := op.(*core.Log); is {
			s.forward(log, l)
		}
	}

	s.publish(&Published{
		TripID:    trip.ID,
		Ops:       core.Ops(result.ResultOps),
		Scheduled: result.ScheduledActions,
	})
	return nil
}

// forward writes a Log op to the service's log.
func (s *Service) forward(log *zap.Logger, l *core.Log) {
	switch l.Level {
	case core.LevelError:
		log.Error(l.Message, zap.String("op", l.Operation()))
	case core.LevelWarn:
		log.Warn(l.Message, zap.String("op", l.Operation()))
	default:
		log.Info(l.Message, zap.String("op", l.Operation()))
	}
}

// schedule asks the scheduler, if any, to run the due actions when
// this one comes up.  The periodic sweep catches anything the
// scheduler can't hold.
func (s *Service) schedule(sa *core.ScheduledAction) {
	if s.Scheduler == nil {
		return
	}
	err := s.Scheduler.Add(&scheduler.Job{
		ID: sa.ID,
		At: sa.ScheduleAt,
		F: func(ctx context.Context, j *scheduler.Job) {
			if _, err := s.FireDue(ctx, s.Clock()); err != nil {
				s.Logger.Error("fire due", zap.String("job", j.ID), zap.Error(err))
			}
		},
	})
	if err != nil {
		s.Logger.Warn("not scheduled", zap.String("id", sa.ID), zap.Error(err))
	}
}

// FireDue runs every scheduled action due by now, oldest first,
// and returns how many ran.  An action that fails is logged and
// dropped.
func (s *Service) FireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Store.DueScheduled(ctx, now)
	if err != nil {
		return 0, err
	}
	ran := 0
	for _, sa := range due {
		if err := s.fire(ctx, sa, now); err != nil {
			if err = s.Store.RemoveScheduled(ctx, sa.ID); err != nil {
				return ran, err
			}
			continue
		}
		ran++
	}
	return ran, nil
}

func (s *Service) fire(ctx context.Context, sa *core.ScheduledAction, now time.Time) error {
	l := s.lock(sa.TripID)
	defer l.Unlock()

	log := s.Logger.With(
		zap.String("trip", sa.TripID),
		zap.String("action", sa.Name),
		zap.String("trigger", sa.TriggerName))

	// Another sweep may have run it while we waited for the lock.
	pending, err := s.Store.PendingScheduled(ctx, sa.TripID)
	if err != nil {
		return s.failed(log, err)
	}
	found := false
	for _, p := range pending {
		found = found || p.ID == sa.ID
	}
	if !found {
		return nil
	}

	then := time.Now()
	trip, ac, err := s.load(ctx, sa.TripID, sa.TriggeringRoleName, now)
	if err != nil {
		return s.failed(log, err)
	}
	result, err := s.kernel.ResultForImmediateAction(sa, ac)
	if err != nil {
		return s.failed(log, err)
	}
	if err = s.commit(ctx, trip, result, []string{sa.ID}); err != nil {
		return s.failed(log, err)
	}
	log.Debug("fired", zap.Duration("late", now.Sub(sa.ScheduleAt)))
	s.Metrics.ObserveDispatch(time.Since(then))
	return nil
}

// Tick emits time_occurred, covering the time since the previous
// tick, to every trip.
func (s *Service) Tick(ctx context.Context, now time.Time) error {
	s.tickMu.Lock()
	last := s.lastTick
	if last.IsZero() {
		last = now.Add(-s.TickInterval)
	}
	s.lastTick = now
	s.tickMu.Unlock()

	trips, err := s.Store.ListTrips(ctx)
	if err != nil {
		return err
	}
	event := times.TimeOccurredEvent(last, now)
	for _, trip := range trips {
		if _, have := s.Script(trip.ScriptName); !have {
			continue
		}
		l := s.lock(trip.ID)
		// Errors are logged and counted already.
		s.dispatch(ctx, trip.ID, event, "", now)
		l.Unlock()
	}
	return nil
}

func (s *Service) countScheduled(ctx context.Context) {
	trips, err := s.Store.ListTrips(ctx)
	if err != nil {
		return
	}
	n := 0
	for _, trip := range trips {
		pending, err := s.Store.PendingScheduled(ctx, trip.ID)
		if err != nil {
			return
		}
		n += len(pending)
	}
	s.Metrics.SetScheduled(n)
}

// UpdateLocation records where a player is and fires
// geofence_entered for each geofence the player has just entered.
func (s *Service) UpdateLocation(ctx context.Context, tripID, playerID string, loc core.Location) ([]*core.Result, error) {
	l := s.lock(tripID)
	defer l.Unlock()

	now := s.Clock()
	trip, ac, err := s.load(ctx, tripID, "", now)
	if err != nil {
		return nil, err
	}
	p := trip.Player(playerID)
	if p == nil {
		return nil, fmt.Errorf("trip %s player %s: %w", tripID, playerID, ErrNoPlayer)
	}

	var from geo.Point
	if p.User != nil && p.User.Location != nil {
		from.Latitude, from.Longitude = &p.User.Location.Latitude, &p.User.Location.Longitude
		from.Accuracy = p.User.Location.Accuracy
	}
	to := geo.Point{Latitude: &loc.Latitude, Longitude: &loc.Longitude, Accuracy: loc.Accuracy}
	events := locations.GeofenceEvents(ac.ScriptContent, trip.WaypointOptions, p.RoleName, from, to)

	if p.User == nil {
		p.User = &core.User{}
	}
	p.User.Location = &loc
	if err = s.Store.PutTrip(ctx, trip); err != nil {
		return nil, err
	}

	acc := make([]*core.Result, 0, len(events))
	for _, event := range events {
		r, err := s.dispatch(ctx, tripID, event, p.RoleName, now)
		if err != nil {
			return acc, err
		}
		acc = append(acc, r)
	}
	return acc, nil
}

// Subscribe returns a channel that hears every Published and a
// function that ends the subscription.  A subscriber that falls
// behind misses messages.
func (s *Service) Subscribe(buffer int) (<-chan *Published, func()) {
	c := make(chan *Published, buffer)
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = c
	s.subsMu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(c)
		})
	}
}

func (s *Service) publish(p *Published) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, c := range s.subs {
		select {
		case c <- p:
		default:
			s.Logger.Warn("subscriber behind", zap.Int("subscriber", id), zap.String("trip", p.TripID))
		}
	}
}

// Run sweeps every TickInterval until the context is done: due
// actions are fired and time_occurred is emitted.  The Scheduler
// must be running.
func (s *Service) Run(ctx context.Context) error {
	if s.Scheduler == nil {
		return ErrNoScheduler
	}
	if !s.Scheduler.Wait(10 * time.Second) {
		return scheduler.ErrNotRunning
	}

	var sweep func(context.Context, *scheduler.Job)
	sweep = func(ctx context.Context, j *scheduler.Job) {
		now := s.Clock()
		if _, err := s.FireDue(ctx, now); err != nil {
			s.Logger.Error("sweep", zap.Error(err))
		}
		if err := s.Tick(ctx, now); err != nil {
			s.Logger.Error("tick", zap.Error(err))
		}
		s.countScheduled(ctx)
		if ctx.Err() != nil {
			return
		}
		err := s.Scheduler.Add(&scheduler.Job{ID: j.ID, At: now.Add(s.TickInterval), F: sweep})
		if err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
			s.Logger.Error("sweep", zap.Error(err))
		}
	}
	err := s.Scheduler.Add(&scheduler.Job{ID: "sweep", At: s.Clock(), F: sweep})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
