// Package scheduler runs work at future times using a single
// time.Timer for the whole backlog.
//
// Jobs wait in a list ordered by time.  Only the soonest job has a
// live timer; when the head of the list changes, the loop re-arms
// it.  This arrangement suits a few thousand pending jobs, not
// millions.
//
// A due job's work runs in a new goroutine, so it may block.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrTooMany        = errors.New("too many")
	ErrExists         = errors.New("id exists")
	ErrNotRunning     = errors.New("not running")
	ErrAlreadyRunning = errors.New("already running")
)

// Job is some work to be done at a given time.
type Job struct {
	// ID is unique across the pending jobs of a Scheduler.
	ID string `json:"id"`

	// F is the work.  It gets the job itself so that one function
	// can serve many jobs.
	F func(context.Context, *Job) `json:"-"`

	At time.Time `json:"at"`

	// Executed is written just before F is called.
	Executed time.Time `json:"executed,omitempty"`
}

// Scheduler is a managed set of Jobs.
//
// Run must be running before Add is called.
type Scheduler struct {
	Max    int
	Logger *zap.Logger

	mu      sync.Mutex
	backlog []*Job
	wake    chan struct{}
	running int32
	ready   chan struct{}
}

// New makes a Scheduler that holds at most max pending jobs.
func New(max int) *Scheduler {
	initial := max / 4
	if initial < 8 {
		initial = 8
	}
	return &Scheduler{
		Max:     max,
		Logger:  zap.NewNop(),
		backlog: make([]*Job, 0, initial),
		wake:    make(chan struct{}, 1),
		ready:   make(chan struct{}, 1),
	}
}

// Run processes the backlog in the current goroutine until the
// context is done.  Jobs still pending then are dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrAlreadyRunning
	}
	defer atomic.StoreInt32(&s.running, 0)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	s.arm(timer)

	s.ready <- struct{}{}
	defer func() {
		select {
		case <-s.ready:
		default:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.backlog = s.backlog[:0]
			s.mu.Unlock()
			return nil
		case <-s.wake:
		case <-timer.C:
			for _, j := range s.due(time.Now()) {
				j := j
				s.Logger.Debug("firing", zap.String("job", j.ID), zap.Duration("late", j.Executed.Sub(j.At)))
				go j.F(ctx, j)
			}
		}
		s.arm(timer)
	}
}

// arm points the timer at the head of the backlog.
func (s *Scheduler) arm(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.backlog) == 0 {
		return
	}
	d := time.Until(s.backlog[0].At)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
}

// due removes and returns the jobs whose time has come.
func (s *Scheduler) due(now time.Time) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := sort.Search(len(s.backlog), func(i int) bool {
		return s.backlog[i].At.After(now)
	})
	if n == 0 {
		return nil
	}
	acc := make([]*Job, n)
	copy(acc, s.backlog[:n])
	for _, j := range acc {
		j.Executed = now
	}
	rest := copy(s.backlog, s.backlog[n:])
	for i := rest; i < len(s.backlog); i++ {
		s.backlog[i] = nil
	}
	s.backlog = s.backlog[:rest]
	return acc
}

// IsRunning reports whether Run is executing.
func (s *Scheduler) IsRunning() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Wait waits up to the timeout for Run to start.
func (s *Scheduler) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-s.ready:
		s.ready <- struct{}{}
		return true
	}
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Add queues the job.
func (s *Scheduler) Add(j *Job) error {
	if !s.IsRunning() {
		return ErrNotRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Max <= len(s.backlog) {
		return ErrTooMany
	}
	for _, x := range s.backlog {
		if x.ID == j.ID {
			return ErrExists
		}
	}

	i := sort.Search(len(s.backlog), func(i int) bool {
		return s.backlog[i].At.After(j.At)
	})
	s.backlog = append(s.backlog, nil)
	copy(s.backlog[i+1:], s.backlog[i:])
	s.backlog[i] = j
	s.Logger.Debug("added", zap.String("job", j.ID), zap.Int("position", i), zap.Time("at", j.At))

	if i == 0 {
		s.poke()
	}
	return nil
}

// Rem removes a pending job.
func (s *Scheduler) Rem(id string) error {
	if !s.IsRunning() {
		return ErrNotRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.backlog {
		if j.ID != id {
			continue
		}
		copy(s.backlog[i:], s.backlog[i+1:])
		s.backlog[len(s.backlog)-1] = nil
		s.backlog = s.backlog[:len(s.backlog)-1]
		if i == 0 {
			s.poke()
		}
		return nil
	}
	return ErrNotFound
}

// Pending returns the ids of the pending jobs, soonest first.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := make([]string, len(s.backlog))
	for i, j := range s.backlog {
		acc[i] = j.ID
	}
	return acc
}
