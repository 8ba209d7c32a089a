package model

import "time"

// Mode is the persisted name of a schedule variant.
type Mode string

const (
	ModeFixed  Mode = "FIXED"
	ModeWindow Mode = "WINDOW"
)

// Schedule is either Fixed or Window. The set of variants is closed.
type Schedule interface {
	Mode() Mode
	isSchedule()
}

// Fixed rings at the same time of day on every active day.
type Fixed struct {
	At TimeOfDay
}

// Window rings once at a uniformly random instant in [Start, End).
// End before Start means the window crosses midnight.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (Fixed) Mode() Mode  { return ModeFixed }
func (Window) Mode() Mode { return ModeWindow }
func (Fixed) isSchedule()  {}
func (Window) isSchedule() {}

// CrossesMidnight reports whether the window ends on the following day.
func (w Window) CrossesMidnight() bool { return w.End.Minutes() < w.Start.Minutes() }

// NewSchedule builds the variant for mode from optional fields. It returns nil
// when a field the mode requires is missing; fields the mode ignores are dropped.
func NewSchedule(mode Mode, fixed, start, end *TimeOfDay) Schedule {
	switch mode {
	case ModeFixed:
		if fixed == nil {
			return nil
		}
		return Fixed{At: *fixed}
	case ModeWindow:
		if start == nil || end == nil {
			return nil
		}
		return Window{Start: *start, End: *end}
	}
	return nil
}

// Alarm is one configured alarm as persisted by the store.
type Alarm struct {
	ID          int64
	Label       string
	Enabled     bool
	Schedule    Schedule
	ActiveDays  DaySet
	LastFiredAt *time.Time
	NextTrigger *time.Time
	SoundURI    string
	SoundTitle  string
}

// ModeName returns the schedule's mode, or "" for a malformed alarm.
func (a Alarm) ModeName() Mode {
	if a.Schedule == nil {
		return ""
	}
	return a.Schedule.Mode()
}

// Describe renders the schedule as "07:30" or "23:00-02:00".
func (a Alarm) Describe() string {
	switch s := a.Schedule.(type) {
	case Fixed:
		return s.At.String()
	case Window:
		return s.Start.String() + "-" + s.End.String()
	}
	return "invalid"
}
