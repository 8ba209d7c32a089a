package scheduler

import (
	"container/heap"
	"context"
	"time"

	"threshold/internal/logging"
)

const maxSleepCap = 60 * time.Second

type request struct {
	ev     Event
	cancel bool
	reply  chan int
}

// Scheduler holds at most one pending trigger per alarm.
type Scheduler struct {
	reqs chan request
	ctx  context.Context
}

// New starts a scheduler that calls onTrigger with the alarm id and the armed
// instant once that instant has passed. onTrigger runs on the scheduler
// goroutine, so it must hand off any work that calls back into the Scheduler.
// The goroutine exits when ctx is cancelled.
func New(ctx context.Context, onTrigger func(id int64, at time.Time)) *Scheduler {
	s := &Scheduler{reqs: make(chan request, 64), ctx: ctx}
	go s.run(onTrigger)
	return s
}

// Schedule arms id for at, replacing any trigger already armed for it.
func (s *Scheduler) Schedule(id int64, at time.Time) {
	s.send(request{ev: Event{AlarmID: id, TriggerAt: at}})
}

// Cancel disarms id. Unknown ids are ignored.
func (s *Scheduler) Cancel(id int64) {
	s.send(request{ev: Event{AlarmID: id}, cancel: true})
}

// Pending returns the number of armed triggers, or 0 once stopped.
func (s *Scheduler) Pending() int {
	reply := make(chan int, 1)
	if !s.send(request{reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-s.ctx.Done():
		return 0
	}
}

func (s *Scheduler) send(r request) bool {
	select {
	case s.reqs <- r:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Scheduler) run(onTrigger func(int64, time.Time)) {
	h := &eventHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := time.Until((*h)[0].TriggerAt)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()
	for {
		select {
		case <-s.ctx.Done():
			return

		case r := <-s.reqs:
			switch {
			case r.reply != nil:
				r.reply <- h.Len()
				continue
			case r.cancel:
				heapRemove(h, r.ev.AlarmID)
			default:
				heapRemove(h, r.ev.AlarmID)
				heapPush(h, r.ev)
				logging.Debug("trigger_armed", map[string]any{"id": r.ev.AlarmID, "at": r.ev.TriggerAt.Format(time.RFC3339)})
			}
			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].TriggerAt.After(now) {
				ev := heapPop(h)
				onTrigger(ev.AlarmID, ev.TriggerAt)
			}
			timerCh = resetTimer()
		}
	}
}
