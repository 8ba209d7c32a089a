package main

import (
	"fmt"
	"strings"
	"time"

	"threshold/internal/alarms"
	"threshold/internal/model"
	"threshold/internal/schedule"
	"threshold/internal/util"
)

// alarmView is the printable form of an alarm.
type alarmView struct {
	ID                int64        `json:"id"`
	Label             string       `json:"label,omitempty"`
	Enabled           bool         `json:"enabled"`
	Mode              string       `json:"mode"`
	Schedule          string       `json:"schedule"`
	ActiveDays        model.DaySet `json:"activeDays"`
	NextTrigger       *time.Time   `json:"nextTrigger,omitempty"`
	NextTriggerMillis *int64       `json:"nextTriggerMillis,omitempty"`
	LastFiredAt       *time.Time   `json:"lastFiredAt,omitempty"`
	SoundTitle        string       `json:"soundTitle,omitempty"`
}

func viewOf(a model.Alarm, loc *time.Location) alarmView {
	v := alarmView{
		ID:         a.ID,
		Label:      a.Label,
		Enabled:    a.Enabled,
		Mode:       string(a.ModeName()),
		Schedule:   a.Describe(),
		ActiveDays: a.ActiveDays,
		SoundTitle: a.SoundTitle,
	}
	if a.NextTrigger != nil {
		t := a.NextTrigger.In(loc)
		v.NextTrigger = &t
		v.NextTriggerMillis = schedule.Millis(t, true)
	}
	if a.LastFiredAt != nil {
		t := a.LastFiredAt.In(loc)
		v.LastFiredAt = &t
	}
	return v
}

func fmtInstant(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("Mon Jan 2 15:04:05")
}

// scheduleFlags are the flags describing an alarm's recurrence.
type scheduleFlags struct {
	fixed  string
	window string
	days   string
}

// build turns the flags into a schedule and day set.
func (f scheduleFlags) build() (model.Schedule, model.DaySet, error) {
	s, days, err := f.parse()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", alarms.ErrInvalidAlarm, err)
	}
	return s, days, nil
}

func (f scheduleFlags) parse() (model.Schedule, model.DaySet, error) {
	days, err := util.ParseDays(f.days)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case f.fixed != "" && f.window != "":
		return nil, 0, fmt.Errorf("use either --fixed or --window, not both")
	case f.fixed != "":
		at, err := model.ParseTimeOfDay(f.fixed)
		if err != nil {
			return nil, 0, err
		}
		return model.Fixed{At: at}, days, nil
	case f.window != "":
		w, err := parseWindow(f.window)
		if err != nil {
			return nil, 0, err
		}
		return w, days, nil
	}
	return nil, 0, fmt.Errorf("one of --fixed or --window is required")
}

// parseWindow reads "HH:MM-HH:MM".
func parseWindow(s string) (model.Window, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return model.Window{}, fmt.Errorf("window %q: want HH:MM-HH:MM", s)
	}
	st, err := model.ParseTimeOfDay(strings.TrimSpace(start))
	if err != nil {
		return model.Window{}, err
	}
	en, err := model.ParseTimeOfDay(strings.TrimSpace(end))
	if err != nil {
		return model.Window{}, err
	}
	return model.Window{Start: st, End: en}, nil
}

// parseInstant reads an RFC3339 flag value and moves it into loc, where
// weekdays and times of day are evaluated.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
