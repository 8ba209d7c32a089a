package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"threshold/internal/alarms"
	"threshold/internal/logging"
	"threshold/internal/store/alarmdb"
)

type fakeSyncer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSyncer) Sync(context.Context) (alarms.SyncReport, error) {
	f.calls.Add(1)
	return alarms.SyncReport{Alarms: 2, Scheduled: 1}, f.err
}

func openDB(t *testing.T) *alarmdb.DB {
	t.Helper()
	db, err := alarmdb.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunResyncOnceAdvancesCursor(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	if _, ok := LastResync(ctx, db); ok {
		t.Fatal("fresh store should have no cursor")
	}
	before := time.Now().Add(-time.Second)
	rep, err := RunResyncOnce(ctx, &fakeSyncer{}, db)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Alarms != 2 || rep.Scheduled != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	last, ok := LastResync(ctx, db)
	if !ok || last.Before(before) {
		t.Fatalf("cursor not advanced: %v %v", last, ok)
	}
}

type brokenCursors struct{}

func (brokenCursors) SaveCursor(context.Context, string, string) error {
	return errors.New("disk full")
}

func (brokenCursors) LoadCursor(context.Context, string) (string, error) {
	return "", errors.New("disk full")
}

func TestRunResyncOnceLogsCursorErrors(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf, slog.LevelDebug)
	defer logging.SetOutput(os.Stdout, slog.LevelInfo)

	s := &fakeSyncer{}
	rep, err := RunResyncOnce(context.Background(), s, brokenCursors{})
	if err != nil {
		t.Fatalf("cursor failure should not fail the resync: %v", err)
	}
	if rep.Alarms != 2 || s.calls.Load() != 1 {
		t.Fatalf("unexpected report %+v calls=%d", rep, s.calls.Load())
	}
	out := buf.String()
	for _, want := range []string{"resync_cursor_load_error", "resync_cursor_save_error", `"level":"WARN"`, "disk full"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRunResyncOnceErrorKeepsCursor(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	if _, err := RunResyncOnce(ctx, &fakeSyncer{err: errors.New("locked")}, db); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := LastResync(ctx, db); ok {
		t.Fatal("failed run must not advance the cursor")
	}
}

func TestRunResyncLoopRunsImmediatelyAndStops(t *testing.T) {
	db := openDB(t)
	s := &fakeSyncer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunResyncLoop(ctx, s, db, "@hourly") }()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.calls.Load() != 1 {
		t.Fatalf("expected one immediate run, got %d", s.calls.Load())
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRunResyncLoopRejectsBadCron(t *testing.T) {
	if err := RunResyncLoop(context.Background(), &fakeSyncer{}, openDB(t), "not a cron"); err == nil {
		t.Fatal("expected error")
	}
}
