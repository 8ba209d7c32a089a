// Package schedule computes when an alarm rings next.
//
// NextTrigger is pure: it reads its arguments, never the wall clock, and draws
// randomness only from the Source it is handed. Next is the boundary wrapper
// that supplies time.Now and a fresh Source.
package schedule

import (
	"math/rand/v2"
	"time"

	"threshold/internal/model"
)

// MinLead is the minimum delay applied when a window alarm is evaluated from
// inside its own window.
const MinLead = 30 * time.Second

// lookaheadDays bounds the forward scan to one full week past today.
const lookaheadDays = 7

// Source is the random source used to sample window triggers.
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Int64N(n int64) int64
}

// NewSource returns a locally owned generator for a single caller.
func NewSource() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NextTrigger returns the earliest instant strictly after now at which a rings.
// ok is false when the alarm is disabled, has no active days, is malformed, or
// nothing fires within the lookahead.
func NextTrigger(a model.Alarm, now time.Time, src Source) (t time.Time, ok bool) {
	if !a.Enabled || a.ActiveDays.Empty() || a.Schedule == nil {
		return time.Time{}, false
	}
	if src == nil {
		src = NewSource()
	}

	// An overnight window that opened yesterday may still be running.
	if w, isWindow := a.Schedule.(model.Window); isWindow && w.CrossesMidnight() {
		yesterday := calendarDay(now, -1)
		if a.ActiveDays.Contains(yesterday.Weekday()) {
			if t, ok := resolveWindow(w, a.LastFiredAt, yesterday, now, src); ok {
				return t, true
			}
		}
	}

	for offset := 0; offset <= lookaheadDays; offset++ {
		day := calendarDay(now, offset)
		if !a.ActiveDays.Contains(day.Weekday()) {
			continue
		}
		if t, ok := resolve(a, day, now, src); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Next evaluates a against the current wall clock in loc.
func Next(a model.Alarm, loc *time.Location) (time.Time, bool) {
	return NextTrigger(a, time.Now().In(loc), NewSource())
}

// Millis converts a NextTrigger result to an optional epoch-millisecond value.
func Millis(t time.Time, ok bool) *int64 {
	if !ok {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func resolve(a model.Alarm, day, now time.Time, src Source) (time.Time, bool) {
	switch s := a.Schedule.(type) {
	case model.Fixed:
		return resolveFixed(s, day, now)
	case model.Window:
		return resolveWindow(s, a.LastFiredAt, day, now, src)
	}
	return time.Time{}, false
}

// calendarDay returns noon of the date offset days from now's date. Noon keeps
// the date stable across DST shifts; only the date part is used afterwards.
func calendarDay(now time.Time, offset int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+offset, 12, 0, 0, 0, now.Location())
}
