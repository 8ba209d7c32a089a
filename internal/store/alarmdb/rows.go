package alarmdb

import (
	"database/sql"
	"encoding/json"
	"time"

	"threshold/internal/model"
)

// alarmRow is the column form of model.Alarm. Times of day are stored as "HH:MM"
// text and instants as epoch milliseconds.
type alarmRow struct {
	label      *string
	enabled    bool
	mode       string
	fixed      *string
	start      *string
	end        *string
	days       string
	next       *int64
	fired      *int64
	soundURI   *string
	soundTitle *string
}

type scanner interface {
	Scan(dest ...any) error
}

func toRow(a model.Alarm) alarmRow {
	r := alarmRow{
		label:      nullable(a.Label),
		enabled:    a.Enabled,
		mode:       string(a.ModeName()),
		next:       millis(a.NextTrigger),
		fired:      millis(a.LastFiredAt),
		soundURI:   nullable(a.SoundURI),
		soundTitle: nullable(a.SoundTitle),
	}
	switch s := a.Schedule.(type) {
	case model.Fixed:
		r.fixed = nullable(s.At.String())
	case model.Window:
		r.start = nullable(s.Start.String())
		r.end = nullable(s.End.String())
	}
	b, _ := json.Marshal(a.ActiveDays)
	r.days = string(b)
	return r
}

func scanAlarm(sc scanner) (model.Alarm, error) {
	var (
		a                        model.Alarm
		label, fixed, start, end sql.NullString
		days, soundURI, title    sql.NullString
		next, fired              sql.NullInt64
		mode                     string
	)
	if err := sc.Scan(&a.ID, &label, &a.Enabled, &mode, &fixed, &start, &end, &days, &next, &fired, &soundURI, &title); err != nil {
		return model.Alarm{}, err
	}
	a.Label = label.String
	a.SoundURI = soundURI.String
	a.SoundTitle = title.String
	// Unparseable columns leave the schedule nil so the alarm never fires.
	a.Schedule = model.NewSchedule(model.Mode(mode), parseTime(fixed), parseTime(start), parseTime(end))
	if days.Valid && days.String != "" {
		if err := json.Unmarshal([]byte(days.String), &a.ActiveDays); err != nil {
			a.ActiveDays = 0
		}
	}
	a.NextTrigger = instant(next)
	a.LastFiredAt = instant(fired)
	return a, nil
}

func parseTime(ns sql.NullString) *model.TimeOfDay {
	if !ns.Valid {
		return nil
	}
	t, err := model.ParseTimeOfDay(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func instant(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64)
	return &t
}

func millis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
