package schedule

import (
	"time"

	"threshold/internal/model"
)

// resolveFixed places f on day. A slot at or before now is spent.
func resolveFixed(f model.Fixed, day, now time.Time) (time.Time, bool) {
	t := f.At.On(day)
	if !t.After(now) {
		return time.Time{}, false
	}
	return t, true
}

// resolveWindow samples a trigger from the occurrence of w that opens on day.
func resolveWindow(w model.Window, lastFired *time.Time, day, now time.Time, src Source) (time.Time, bool) {
	start, end := windowBounds(w, day)

	// One ring per occurrence.
	if lastFired != nil && !lastFired.Before(start) && lastFired.Before(end) {
		return time.Time{}, false
	}
	if now.After(end) {
		return time.Time{}, false
	}
	if start.Equal(end) {
		if start.After(now) {
			return start, true
		}
		return time.Time{}, false
	}

	floor := start
	if now.After(start) {
		floor = now.Add(MinLead)
		// Draws are truncated to whole seconds, so the floor must be one.
		if f := floor.Truncate(time.Second); f.Before(floor) {
			floor = f.Add(time.Second)
		}
		if !floor.Before(end) {
			return time.Time{}, false
		}
	}

	t := sample(floor, end, src)
	if !t.After(now) {
		// Only reachable when now == start and the draw lands on it.
		t = now.Truncate(time.Second).Add(time.Second)
		if !t.Before(end) {
			return time.Time{}, false
		}
	}
	return t, true
}

// windowBounds composes the occurrence of w opening on day. Only the end moves
// to the next day when the window crosses midnight.
func windowBounds(w model.Window, day time.Time) (start, end time.Time) {
	start = w.Start.On(day)
	end = w.End.On(day)
	if end.Before(start) {
		end = w.End.On(day.AddDate(0, 0, 1))
	}
	return start, end
}

// sample draws uniformly from [floor, end) at millisecond resolution and drops
// the sub-second part.
func sample(floor, end time.Time, src Source) time.Time {
	var off int64
	if span := end.Sub(floor).Milliseconds(); span > 0 {
		off = src.Int64N(span)
	}
	return floor.Add(time.Duration(off) * time.Millisecond).Truncate(time.Second)
}
