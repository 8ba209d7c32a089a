package analytics

import (
	"sort"
	"time"

	"threshold/internal/store/alarmdb"
)

// HourlyFirings buckets event-log entries by hour (in loc) and event type.
func HourlyFirings(events []alarmdb.Event, loc *time.Location) map[time.Time]map[string]int {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[time.Time]map[string]int)
	for _, e := range events {
		ts := e.TS.In(loc)
		key := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, loc)
		if _, ok := buckets[key]; !ok {
			buckets[key] = make(map[string]int)
		}
		buckets[key][e.Type]++
	}
	return buckets
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]map[string]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// PerAlarm counts events of each type per alarm id.
func PerAlarm(events []alarmdb.Event) map[int64]map[string]int {
	out := make(map[int64]map[string]int)
	for _, e := range events {
		if _, ok := out[e.AlarmID]; !ok {
			out[e.AlarmID] = make(map[string]int)
		}
		out[e.AlarmID][e.Type]++
	}
	return out
}
