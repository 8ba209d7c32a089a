// Package calendar projects upcoming alarm occurrences and exports them as iCalendar.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"threshold/internal/model"
	"threshold/internal/schedule"
)

// ErrEmpty is returned by Export when there is nothing to write.
var ErrEmpty = errors.New("no occurrences to export")

const eventLength = time.Minute

// Occurrence is one projected firing of an alarm.
type Occurrence struct {
	AlarmID  int64     `json:"alarmId"`
	Label    string    `json:"label,omitempty"`
	Schedule string    `json:"schedule"`
	At       time.Time `json:"at"`
}

// UID is stable for a given alarm and instant.
func (o Occurrence) UID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("alarm/%d/%d", o.AlarmID, o.At.Unix()))).String()
}

// Upcoming projects up to count occurrences per alarm after from, ordered by
// time. Each occurrence is treated as fired when computing the next, so a
// window yields at most one occurrence per activation.
func Upcoming(alarms []model.Alarm, from time.Time, count int, src schedule.Source) []Occurrence {
	var out []Occurrence
	for _, a := range alarms {
		cursor := a
		now := from
		for i := 0; i < count; i++ {
			t, ok := schedule.NextTrigger(cursor, now, src)
			if !ok {
				break
			}
			out = append(out, Occurrence{AlarmID: a.ID, Label: a.Label, Schedule: a.Describe(), At: t})
			fired := t
			cursor.LastFiredAt = &fired
			now = t
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Export writes occ as a VCALENDAR with one minute-long VEVENT each.
func Export(w io.Writer, occ []Occurrence, stamp time.Time) error {
	if len(occ) == 0 {
		return ErrEmpty
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//threshold//alarms//EN")
	for _, o := range occ {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, o.UID())
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, o.At.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, o.At.Add(eventLength).UTC())
		ev.Props.SetText(ical.PropSummary, summary(o))
		ev.Props.SetText(ical.PropDescription, "Schedule "+o.Schedule)
		cal.Children = append(cal.Children, ev.Component)
	}
	return ical.NewEncoder(w).Encode(cal)
}

func summary(o Occurrence) string {
	if o.Label != "" {
		return "Alarm: " + o.Label
	}
	return fmt.Sprintf("Alarm #%d", o.AlarmID)
}
