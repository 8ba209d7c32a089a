package scheduler

import (
	"testing"
	"time"
)

func TestHeapOrdersByTrigger(t *testing.T) {
	base := time.Date(2023, 11, 1, 10, 0, 0, 0, time.UTC)
	h := &eventHeap{}
	for i, off := range []int{5, 1, 3, 2, 4} {
		heapPush(h, Event{AlarmID: int64(i), TriggerAt: base.Add(time.Duration(off) * time.Minute)})
	}
	if !heapRemove(h, 2) {
		t.Fatal("expected id 2 to be removed")
	}
	if heapRemove(h, 42) {
		t.Fatal("unknown id should not be removed")
	}
	var got []int64
	for h.Len() > 0 {
		got = append(got, heapPop(h).AlarmID)
	}
	want := []int64{1, 3, 4, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
