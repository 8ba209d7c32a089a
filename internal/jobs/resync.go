// Package jobs runs the daemon's periodic work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"threshold/internal/alarms"
	"threshold/internal/logging"
	"threshold/internal/metrics"
)

const cursorKey = "resync:last"

// Syncer reconciles stored alarms with armed triggers.
type Syncer interface {
	Sync(ctx context.Context) (alarms.SyncReport, error)
}

// CursorStore persists the time of the last successful resync.
type CursorStore interface {
	SaveCursor(ctx context.Context, key, value string) error
	LoadCursor(ctx context.Context, key string) (string, error)
}

// RunResyncOnce reconciles once and advances the cursor on success.
func RunResyncOnce(ctx context.Context, s Syncer, db CursorStore) (alarms.SyncReport, error) {
	start := time.Now()
	metrics.ResyncRuns.Inc()
	defer metrics.ObserveResyncDuration(start)

	prev, err := db.LoadCursor(ctx, cursorKey)
	if err != nil {
		logging.Warn("resync_cursor_load_error", map[string]any{"key": cursorKey, "error": err.Error()})
	}
	rep, err := s.Sync(ctx)
	if err != nil {
		metrics.ResyncErrors.Inc()
		return rep, err
	}
	if err := db.SaveCursor(ctx, cursorKey, start.UTC().Format(time.RFC3339Nano)); err != nil {
		logging.Warn("resync_cursor_save_error", map[string]any{"key": cursorKey, "error": err.Error()})
	}
	logging.Info("resync_once", map[string]any{
		"previous":   prev,
		"alarms":     rep.Alarms,
		"recomputed": rep.Recomputed,
		"scheduled":  rep.Scheduled,
		"cancelled":  rep.Cancelled,
	})
	return rep, nil
}

// LastResync returns when the last successful resync started, if any.
func LastResync(ctx context.Context, db CursorStore) (time.Time, bool) {
	v, err := db.LoadCursor(ctx, cursorKey)
	if err != nil || v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	return t, err == nil
}

// RunResyncLoop runs RunResyncOnce immediately and then at every tick of
// cronExpr until ctx is cancelled.
func RunResyncLoop(ctx context.Context, s Syncer, db CursorStore, cronExpr string) error {
	if !gronx.New().IsValid(cronExpr) {
		return fmt.Errorf("invalid resync cron %q", cronExpr)
	}
	if _, err := RunResyncOnce(ctx, s, db); err != nil {
		logging.Error("resync_once_error", map[string]any{"error": err.Error()})
	}
	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now(), false)
		if err != nil {
			return err
		}
		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			logging.Info("resync_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if _, err := RunResyncOnce(ctx, s, db); err != nil {
				logging.Error("resync_once_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
