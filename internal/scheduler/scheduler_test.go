package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	fired []int64
	at    map[int64]time.Time
}

func newRecorder() *recorder { return &recorder{at: map[int64]time.Time{}} }

func (r *recorder) trigger(id int64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, id)
	r.at[id] = at
}

func (r *recorder) snapshot() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.fired...)
}

func TestScheduleFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRecorder()
	s := New(ctx, r.trigger)

	at := time.Now().Add(50 * time.Millisecond)
	s.Schedule(7, at)
	time.Sleep(300 * time.Millisecond)

	got := r.snapshot()
	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected alarm 7 to fire once, got %v", got)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.at[7].Equal(at) {
		t.Fatalf("expected armed instant %v, got %v", at, r.at[7])
	}
}

func TestCancelBeforeFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRecorder()
	s := New(ctx, r.trigger)

	s.Schedule(1, time.Now().Add(100*time.Millisecond))
	s.Cancel(1)
	s.Cancel(99)
	time.Sleep(300 * time.Millisecond)

	if got := r.snapshot(); len(got) != 0 {
		t.Fatalf("cancelled alarm fired: %v", got)
	}
	if n := s.Pending(); n != 0 {
		t.Fatalf("expected empty heap, got %d", n)
	}
}

func TestRescheduleReplaces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRecorder()
	s := New(ctx, r.trigger)

	s.Schedule(1, time.Now().Add(50*time.Millisecond))
	s.Schedule(1, time.Now().Add(time.Hour))
	if n := s.Pending(); n != 1 {
		t.Fatalf("expected one pending trigger, got %d", n)
	}
	time.Sleep(250 * time.Millisecond)
	if got := r.snapshot(); len(got) != 0 {
		t.Fatalf("replaced trigger fired: %v", got)
	}
}

func TestFiresInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRecorder()
	s := New(ctx, r.trigger)

	now := time.Now()
	s.Schedule(3, now.Add(150*time.Millisecond))
	s.Schedule(1, now.Add(50*time.Millisecond))
	s.Schedule(2, now.Add(100*time.Millisecond))
	s.Schedule(4, now.Add(-time.Second))
	time.Sleep(400 * time.Millisecond)

	got := r.snapshot()
	want := []int64{4, 1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newRecorder()
	s := New(ctx, r.trigger)
	s.Schedule(1, time.Now().Add(100*time.Millisecond))
	cancel()
	time.Sleep(250 * time.Millisecond)

	if got := r.snapshot(); len(got) != 0 {
		t.Fatalf("stopped scheduler fired: %v", got)
	}
	if n := s.Pending(); n != 0 {
		t.Fatalf("expected 0 from stopped scheduler, got %d", n)
	}
	s.Schedule(2, time.Now()) // must not block
}
