package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DaySet is a set of weekdays, 0 (Sunday) through 6 (Saturday), stored as a bitmask.
type DaySet uint8

const (
	Weekdays DaySet = 1<<time.Monday | 1<<time.Tuesday | 1<<time.Wednesday | 1<<time.Thursday | 1<<time.Friday
	Weekend  DaySet = 1<<time.Saturday | 1<<time.Sunday
	Everyday DaySet = Weekdays | Weekend
)

// NewDaySet builds a set from weekday numbers; values outside 0..6 are ignored.
func NewDaySet(days ...int) DaySet {
	var s DaySet
	for _, d := range days {
		if d >= 0 && d <= 6 {
			s |= 1 << uint(d)
		}
	}
	return s
}

func (s DaySet) Contains(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

func (s DaySet) Empty() bool { return s&Everyday == 0 }

func (s DaySet) With(d time.Weekday) DaySet { return s | 1<<uint(d) }

// Sorted returns the members in ascending order.
func (s DaySet) Sorted() []int {
	out := make([]int, 0, 7)
	for d := 0; d <= 6; d++ {
		if s&(1<<uint(d)) != 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s DaySet) String() string {
	if s&Everyday == Everyday {
		return "everyday"
	}
	names := make([]string, 0, 7)
	for _, d := range s.Sorted() {
		names = append(names, time.Weekday(d).String()[:3])
	}
	return strings.Join(names, ",")
}

func (s DaySet) MarshalJSON() ([]byte, error) { return json.Marshal(s.Sorted()) }

func (s *DaySet) UnmarshalJSON(b []byte) error {
	var days []int
	if err := json.Unmarshal(b, &days); err != nil {
		return err
	}
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range", d)
		}
	}
	*s = NewDaySet(days...)
	return nil
}
