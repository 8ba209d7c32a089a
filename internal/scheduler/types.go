// Package scheduler wakes the process at alarm trigger instants.
//
// A single goroutine owns a min-heap of pending triggers and sleeps until the
// earliest one, never longer than a minute at a time so wall-clock steps
// (NTP corrections, DST, suspend/resume) are noticed promptly.
package scheduler

import "time"

// Event is one armed trigger.
type Event struct {
	AlarmID   int64
	TriggerAt time.Time
}
