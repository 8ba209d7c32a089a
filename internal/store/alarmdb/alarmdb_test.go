package alarmdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"threshold/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndLoadAlarms(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	next := time.Date(2023, 11, 1, 23, 15, 0, 0, time.UTC)

	fixedID, err := db.SaveAlarm(ctx, model.Alarm{
		Label: "gym", Enabled: true,
		Schedule:   model.Fixed{At: model.MustTimeOfDay("06:30")},
		ActiveDays: model.Weekdays,
		SoundURI:   "content://bell",
	})
	if err != nil {
		t.Fatal(err)
	}
	windowID, err := db.SaveAlarm(ctx, model.Alarm{
		Enabled:     true,
		Schedule:    model.Window{Start: model.MustTimeOfDay("23:00"), End: model.MustTimeOfDay("02:00")},
		ActiveDays:  model.NewDaySet(3),
		NextTrigger: &next,
	})
	if err != nil {
		t.Fatal(err)
	}
	if fixedID == windowID {
		t.Fatalf("expected distinct ids, got %d", fixedID)
	}

	all, err := db.ListAlarms(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("list: %v %d", err, len(all))
	}
	if got := all[0]; got.Label != "gym" || got.Describe() != "06:30" || got.ActiveDays != model.Weekdays || got.SoundURI != "content://bell" {
		t.Fatalf("fixed alarm mismatch: %+v", got)
	}
	w, err := db.GetAlarm(ctx, windowID)
	if err != nil {
		t.Fatal(err)
	}
	if w.Describe() != "23:00-02:00" || w.NextTrigger == nil || !w.NextTrigger.Equal(next) || w.LastFiredAt != nil {
		t.Fatalf("window alarm mismatch: %+v", w)
	}

	w.Enabled = false
	w.Label = "late"
	if _, err := db.SaveAlarm(ctx, w); err != nil {
		t.Fatal(err)
	}
	w, _ = db.GetAlarm(ctx, windowID)
	if w.Enabled || w.Label != "late" {
		t.Fatalf("update not applied: %+v", w)
	}
}

func TestMissingAlarm(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if _, err := db.GetAlarm(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get: expected ErrNotFound, got %v", err)
	}
	if err := db.DeleteAlarm(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	if _, err := db.SaveAlarm(ctx, model.Alarm{ID: 42, Schedule: model.Fixed{}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
}

func TestTriggerAndFiredColumns(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	id, err := db.SaveAlarm(ctx, model.Alarm{Enabled: true, Schedule: model.Fixed{At: model.MustTimeOfDay("07:00")}, ActiveDays: model.Everyday})
	if err != nil {
		t.Fatal(err)
	}
	next := time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC)
	fired := next.Add(-24 * time.Hour)
	if err := db.RecordFired(ctx, id, fired, &next); err != nil {
		t.Fatal(err)
	}
	a, _ := db.GetAlarm(ctx, id)
	if a.NextTrigger == nil || !a.NextTrigger.Equal(next) || a.LastFiredAt == nil || !a.LastFiredAt.Equal(fired) {
		t.Fatalf("columns mismatch: %+v", a)
	}
	if err := db.SetNextTrigger(ctx, id, nil); err != nil {
		t.Fatal(err)
	}
	a, _ = db.GetAlarm(ctx, id)
	if a.NextTrigger != nil {
		t.Fatalf("expected cleared trigger, got %v", a.NextTrigger)
	}
}

func TestRecordFiredWritesBothColumns(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	next := time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC)
	id, err := db.SaveAlarm(ctx, model.Alarm{Enabled: true, Schedule: model.Fixed{At: model.MustTimeOfDay("07:00")}, ActiveDays: model.Everyday, NextTrigger: &next})
	if err != nil {
		t.Fatal(err)
	}
	fired := next
	if err := db.RecordFired(ctx, id, fired, nil); err != nil {
		t.Fatal(err)
	}
	a, _ := db.GetAlarm(ctx, id)
	if a.NextTrigger != nil || a.LastFiredAt == nil || !a.LastFiredAt.Equal(fired) {
		t.Fatalf("columns mismatch: %+v", a)
	}
	if err := db.RecordFired(ctx, id+100, fired, &next); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	other, _ := db.GetAlarm(ctx, id)
	if other.NextTrigger != nil {
		t.Fatalf("missing id touched alarm %d: %+v", id, other)
	}
}

func TestMalformedRowLoadsWithoutSchedule(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if _, err := db.sql.Exec(`INSERT INTO alarms(enabled, mode, window_start, active_days) VALUES(1, 'WINDOW', '09:00', '[1,2]')`); err != nil {
		t.Fatal(err)
	}
	all, err := db.ListAlarms(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v %d", err, len(all))
	}
	if all[0].Schedule != nil {
		t.Fatalf("expected nil schedule for window without end, got %#v", all[0].Schedule)
	}
}

func TestEventsAndCursors(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	uid, err := db.PutEvent(ctx, now, 7, "fired", map[string]any{"label": "gym"})
	if err != nil || uid == "" {
		t.Fatalf("put event: %v %q", err, uid)
	}
	_, _ = db.PutEvent(ctx, now.Add(time.Minute), 7, "snoozed", nil)
	_, _ = db.PutEvent(ctx, now.Add(2*time.Hour), 7, "fired", nil)

	evs, err := db.LoadEventsRange(ctx, now, now.Add(time.Hour), "")
	if err != nil || len(evs) != 2 {
		t.Fatalf("range: %v %d", err, len(evs))
	}
	if evs[0].UID != uid || evs[0].AlarmID != 7 || evs[0].Payload != `{"label":"gym"}` {
		t.Fatalf("event mismatch: %+v", evs[0])
	}
	fired, _ := db.LoadEventsRange(ctx, now, now.Add(3*time.Hour), "fired")
	if len(fired) != 2 {
		t.Fatalf("expected 2 fired events, got %d", len(fired))
	}

	if v, err := db.LoadCursor(ctx, "resync:last"); err != nil || v != "" {
		t.Fatalf("unset cursor: %v %q", err, v)
	}
	_ = db.SaveCursor(ctx, "resync:last", "a")
	_ = db.SaveCursor(ctx, "resync:last", "b")
	if v, _ := db.LoadCursor(ctx, "resync:last"); v != "b" {
		t.Fatalf("cursor mismatch: %q", v)
	}
}

func TestMigrateAddsLastFiredColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a database from before fired-tracking.
	if _, err := db.sql.Exec(`DROP TABLE alarms; CREATE TABLE alarms (id INTEGER PRIMARY KEY AUTOINCREMENT, label TEXT, enabled BOOLEAN NOT NULL DEFAULT 0, mode TEXT NOT NULL, fixed_time TEXT, window_start TEXT, window_end TEXT, active_days TEXT, next_trigger INTEGER, sound_uri TEXT, sound_title TEXT)`); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if ok, err := db.hasColumn("alarms", "last_fired_at"); err != nil || !ok {
		t.Fatalf("expected last_fired_at after migrate: %v %v", ok, err)
	}
}
