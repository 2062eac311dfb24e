package scheduler

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

// start runs a Scheduler until the returned function is called.
func start(t *testing.T, max int) (*Scheduler, func()) {
	s := New(max)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.Run(ctx); err != nil {
			t.Error(err)
		}
	}()
	if !s.Wait(time.Second) {
		t.Fatal("scheduler didn't start running")
	}
	return s, func() {
		cancel()
		wg.Wait()
	}
}

type recorder struct {
	sync.Mutex
	heard []string
	done  chan struct{}
	want  int
}

func newRecorder(want int) *recorder {
	return &recorder{done: make(chan struct{}), want: want}
}

func (r *recorder) F(_ context.Context, j *Job) {
	r.Lock()
	defer r.Unlock()
	r.heard = append(r.heard, j.ID)
	if len(r.heard) == r.want {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T, timeout time.Duration) []string {
	select {
	case <-r.done:
	case <-time.After(timeout):
		t.Fatal("timeout")
	}
	r.Lock()
	defer r.Unlock()
	return append([]string{}, r.heard...)
}

func TestBasic(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, stop := start(t, 10)
	defer stop()

	r := newRecorder(4)
	add := func(id string, d time.Duration) {
		if err := s.Add(&Job{ID: id, At: time.Now().Add(d), F: r.F}); err != nil {
			t.Fatal(err)
		}
	}

	add("3", 150*time.Millisecond)
	add("2", 100*time.Millisecond)
	add("1", 20*time.Millisecond)
	if err := s.Rem("2"); err != nil {
		t.Fatal(err)
	}
	add("5", 250*time.Millisecond)
	add("4", 200*time.Millisecond)
	if err := s.Rem("5"); err != nil {
		t.Fatal(err)
	}
	add("6", 300*time.Millisecond)

	if diff := cmp.Diff([]string{"1", "3", "4", "6"}, r.wait(t, 3*time.Second)); diff != "" {
		t.Fatal(diff)
	}
	if n := len(s.Pending()); n != 0 {
		t.Fatal(n)
	}
}

func TestPast(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, stop := start(t, 10)
	defer stop()

	r := newRecorder(2)
	for i := 0; i < 2; i++ {
		err := s.Add(&Job{
			ID: strconv.Itoa(i),
			At: time.Now().Add(-time.Minute),
			F:  r.F,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff([]string{"0", "1"}, r.wait(t, time.Second)); diff != "" {
		t.Fatal(diff)
	}
}

func TestErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	if err := New(2).Add(&Job{ID: "x"}); err != ErrNotRunning {
		t.Fatal(err)
	}

	s, stop := start(t, 2)
	defer stop()

	if err := s.Run(context.Background()); err != ErrAlreadyRunning {
		t.Fatal(err)
	}

	later := time.Now().Add(time.Hour)
	nop := func(context.Context, *Job) {}
	if err := s.Add(&Job{ID: "a", At: later, F: nop}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(&Job{ID: "a", At: later, F: nop}); err != ErrExists {
		t.Fatal(err)
	}
	if err := s.Add(&Job{ID: "b", At: later, F: nop}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(&Job{ID: "c", At: later, F: nop}); err != ErrTooMany {
		t.Fatal(err)
	}
	if err := s.Rem("c"); err != ErrNotFound {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, s.Pending()); diff != "" {
		t.Fatal(diff)
	}
}

func TestStopDropsPending(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, stop := start(t, 10)
	if err := s.Add(&Job{ID: "x", At: time.Now().Add(time.Hour), F: func(context.Context, *Job) {}}); err != nil {
		t.Fatal(err)
	}
	stop()
	if s.IsRunning() {
		t.Fatal("still running")
	}
	if n := len(s.Pending()); n != 0 {
		t.Fatal(n)
	}
}
