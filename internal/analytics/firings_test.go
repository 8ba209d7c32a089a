package analytics

import (
	"testing"
	"time"

	"threshold/internal/store/alarmdb"
)

func TestHourlyFirings(t *testing.T) {
	ev := func(h, m int, id int64, typ string) alarmdb.Event {
		return alarmdb.Event{TS: time.Date(2023, 11, 1, h, m, 0, 0, time.UTC), AlarmID: id, Type: typ}
	}
	events := []alarmdb.Event{
		ev(7, 0, 1, "fired"),
		ev(7, 40, 1, "snoozed"),
		ev(7, 50, 2, "fired"),
		ev(23, 15, 2, "fired"),
	}
	b := HourlyFirings(events, time.UTC)
	keys := SortedBucketKeys(b)
	if len(keys) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(keys))
	}
	if keys[0].Hour() != 7 || b[keys[0]]["fired"] != 2 || b[keys[0]]["snoozed"] != 1 {
		t.Fatalf("unexpected first bucket %v: %v", keys[0], b[keys[0]])
	}

	// 23:15 UTC is 00:15 the next day in UTC+1.
	plusOne := time.FixedZone("UTC+1", 3600)
	keys = SortedBucketKeys(HourlyFirings(events, plusOne))
	if last := keys[len(keys)-1]; last.Day() != 2 || last.Hour() != 0 {
		t.Fatalf("expected local midnight bucket, got %v", last)
	}

	per := PerAlarm(events)
	if per[1]["fired"] != 1 || per[1]["snoozed"] != 1 || per[2]["fired"] != 2 {
		t.Fatalf("unexpected per-alarm counts: %v", per)
	}
}
