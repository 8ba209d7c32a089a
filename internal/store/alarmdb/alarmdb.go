package alarmdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"threshold/internal/model"
)

// ErrNotFound is returned when an alarm id has no row.
var ErrNotFound = errors.New("alarm not found")

// DB wraps the SQLite database holding alarms and the event log.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// :memory: databases are per-connection.
	if path == ":memory:" {
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS alarms (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  label TEXT,
	  enabled BOOLEAN NOT NULL DEFAULT 0,
	  mode TEXT NOT NULL,
	  fixed_time TEXT,
	  window_start TEXT,
	  window_end TEXT,
	  active_days TEXT,
	  next_trigger INTEGER,
	  sound_uri TEXT,
	  sound_title TEXT
	);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  uid TEXT NOT NULL,
	  ts INTEGER NOT NULL,
	  alarm_id INTEGER,
	  type TEXT NOT NULL,
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	if err != nil {
		return err
	}
	// Databases created before fired-tracking lack last_fired_at.
	has, err := d.hasColumn("alarms", "last_fired_at")
	if err != nil {
		return err
	}
	if !has {
		if _, err := d.sql.Exec(`ALTER TABLE alarms ADD COLUMN last_fired_at INTEGER`); err != nil {
			return fmt.Errorf("add last_fired_at: %w", err)
		}
	}
	return nil
}

func (d *DB) hasColumn(table, column string) (bool, error) {
	rows, err := d.sql.Query(`SELECT name FROM pragma_table_info('` + table + `')`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

const alarmColumns = `id, label, enabled, mode, fixed_time, window_start, window_end, active_days, next_trigger, last_fired_at, sound_uri, sound_title`

// ListAlarms returns every alarm ordered by id.
func (d *DB) ListAlarms(ctx context.Context) ([]model.Alarm, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+alarmColumns+` FROM alarms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) GetAlarm(ctx context.Context, id int64) (model.Alarm, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+alarmColumns+` FROM alarms WHERE id=?`, id)
	a, err := scanAlarm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alarm{}, fmt.Errorf("alarm %d: %w", id, ErrNotFound)
	}
	return a, err
}

// SaveAlarm inserts a when its ID is zero and updates it otherwise. It returns the row id.
func (d *DB) SaveAlarm(ctx context.Context, a model.Alarm) (int64, error) {
	r := toRow(a)
	if a.ID == 0 {
		res, err := d.sql.ExecContext(ctx, `INSERT INTO alarms(label, enabled, mode, fixed_time, window_start, window_end, active_days, next_trigger, last_fired_at, sound_uri, sound_title) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			r.label, r.enabled, r.mode, r.fixed, r.start, r.end, r.days, r.next, r.fired, r.soundURI, r.soundTitle)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE alarms SET label=?, enabled=?, mode=?, fixed_time=?, window_start=?, window_end=?, active_days=?, next_trigger=?, last_fired_at=?, sound_uri=?, sound_title=? WHERE id=?`,
		r.label, r.enabled, r.mode, r.fixed, r.start, r.end, r.days, r.next, r.fired, r.soundURI, r.soundTitle, a.ID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("alarm %d: %w", a.ID, ErrNotFound)
	}
	return a.ID, nil
}

func (d *DB) DeleteAlarm(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM alarms WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alarm %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetNextTrigger stores t, or clears the column when t is nil.
func (d *DB) SetNextTrigger(ctx context.Context, id int64, t *time.Time) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE alarms SET next_trigger=? WHERE id=?`, millis(t), id)
	return err
}

// RecordFired stamps the firing and stores the re-armed trigger in one statement.
func (d *DB) RecordFired(ctx context.Context, id int64, firedAt time.Time, next *time.Time) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE alarms SET last_fired_at=?, next_trigger=? WHERE id=?`, firedAt.UnixMilli(), millis(next), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alarm %d: %w", id, ErrNotFound)
	}
	return nil
}

// PutEvent appends an event-log entry and returns its uid.
func (d *DB) PutEvent(ctx context.Context, ts time.Time, alarmID int64, typ string, payload any) (string, error) {
	uid := uuid.NewString()
	var pstr *string
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return "", err
		}
		ps := string(pb)
		pstr = &ps
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO events(uid, ts, alarm_id, type, payload) VALUES(?,?,?,?,?)`, uid, ts.UnixMilli(), alarmID, typ, pstr)
	return uid, err
}

// Event is a stored event-log entry.
type Event struct {
	UID     string
	TS      time.Time
	AlarmID int64
	Type    string
	Payload string
}

// LoadEventsRange returns events in [start, end), optionally filtered by type.
func (d *DB) LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]Event, error) {
	q := `SELECT uid, ts, COALESCE(alarm_id, 0), type, COALESCE(payload, '') FROM events WHERE ts>=? AND ts<?`
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if typ != "" {
		q += ` AND type=?`
		args = append(args, typ)
	}
	rows, err := d.sql.QueryContext(ctx, q+` ORDER BY ts, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var ts int64
		if err := rows.Scan(&e.UID, &ts, &e.AlarmID, &e.Type, &e.Payload); err != nil {
			return nil, err
		}
		e.TS = time.UnixMilli(ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns "" when the key is unset.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}
