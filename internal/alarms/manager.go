// Package alarms coordinates the alarm lifecycle: it persists alarms, keeps
// their next trigger current, and keeps a Registrar (the thing that actually
// wakes up at the trigger) in step with the store.
package alarms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"threshold/internal/logging"
	"threshold/internal/metrics"
	"threshold/internal/model"
	"threshold/internal/schedule"
)

// ErrInvalidAlarm marks input that cannot describe an alarm.
var ErrInvalidAlarm = errors.New("invalid alarm")

// Store is the persistence the manager needs.
type Store interface {
	ListAlarms(ctx context.Context) ([]model.Alarm, error)
	GetAlarm(ctx context.Context, id int64) (model.Alarm, error)
	SaveAlarm(ctx context.Context, a model.Alarm) (int64, error)
	DeleteAlarm(ctx context.Context, id int64) error
	SetNextTrigger(ctx context.Context, id int64, t *time.Time) error
	RecordFired(ctx context.Context, id int64, firedAt time.Time, next *time.Time) error
	PutEvent(ctx context.Context, ts time.Time, alarmID int64, typ string, payload any) (string, error)
}

// Registrar arms and disarms the wake-up for an alarm.
type Registrar interface {
	Schedule(id int64, at time.Time)
	Cancel(id int64)
}

// Notifier is told when an alarm rings.
type Notifier interface {
	Ring(ctx context.Context, a model.Alarm, firedAt time.Time) error
}

// NopRegistrar discards registrations; used by one-shot CLI commands whose
// changes the daemon picks up on its next resync.
type NopRegistrar struct{}

func (NopRegistrar) Schedule(int64, time.Time) {}
func (NopRegistrar) Cancel(int64)              {}

type Manager struct {
	store      Store
	reg        Registrar
	notifier   Notifier
	now        func() time.Time
	newSource  func() schedule.Source
	snooze     time.Duration
	importDays model.DaySet

	mu         sync.Mutex
	registered map[int64]time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now; the returned location is the one alarms are evaluated in.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithSource(f func() schedule.Source) Option { return func(m *Manager) { m.newSource = f } }

func WithSnooze(d time.Duration) Option { return func(m *Manager) { m.snooze = d } }

func WithImportDays(days model.DaySet) Option { return func(m *Manager) { m.importDays = days } }

func WithNotifier(n Notifier) Option { return func(m *Manager) { m.notifier = n } }

func New(store Store, reg Registrar, opts ...Option) *Manager {
	if reg == nil {
		reg = NopRegistrar{}
	}
	m := &Manager{
		store:      store,
		reg:        reg,
		now:        time.Now,
		newSource:  func() schedule.Source { return schedule.NewSource() },
		snooze:     10 * time.Minute,
		importDays: model.Everyday,
		registered: make(map[int64]time.Time),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// List returns all stored alarms.
func (m *Manager) List(ctx context.Context) ([]model.Alarm, error) {
	return m.store.ListAlarms(ctx)
}

func (m *Manager) Get(ctx context.Context, id int64) (model.Alarm, error) {
	return m.store.GetAlarm(ctx, id)
}

// Save computes a's next trigger, persists it, and arms or disarms it.
// A zero ID creates a new alarm. A nil schedule is stored but never triggers.
func (m *Manager) Save(ctx context.Context, a model.Alarm) (model.Alarm, error) {
	if err := validate(a); err != nil {
		return model.Alarm{}, err
	}
	now := m.now()
	a.NextTrigger = m.compute(a, now)
	id, err := m.store.SaveAlarm(ctx, a)
	if err != nil {
		return model.Alarm{}, fmt.Errorf("save alarm: %w", err)
	}
	a.ID = id
	m.apply(a, now)
	logging.Info("alarm_saved", map[string]any{"id": a.ID, "schedule": a.Describe(), "days": a.ActiveDays.String(), "next": fmtTrigger(a.NextTrigger)})
	return a, nil
}

// Toggle enables or disables an alarm. Disabling clears its next trigger.
func (m *Manager) Toggle(ctx context.Context, id int64, enabled bool) (model.Alarm, error) {
	a, err := m.store.GetAlarm(ctx, id)
	if err != nil {
		return model.Alarm{}, err
	}
	a.Enabled = enabled
	return m.Save(ctx, a)
}

func (m *Manager) Delete(ctx context.Context, id int64) error {
	if err := m.store.DeleteAlarm(ctx, id); err != nil {
		return err
	}
	m.unregister(id)
	logging.Info("alarm_deleted", map[string]any{"id": id})
	return nil
}

// Snooze moves the next trigger to now plus minutes; minutes <= 0 uses the
// configured default. The recurrence is untouched.
func (m *Manager) Snooze(ctx context.Context, id int64, minutes int) (time.Time, error) {
	if _, err := m.store.GetAlarm(ctx, id); err != nil {
		return time.Time{}, err
	}
	d := m.snooze
	if minutes > 0 {
		d = time.Duration(minutes) * time.Minute
	}
	now := m.now()
	at := now.Add(d).Truncate(time.Second)
	if err := m.store.SetNextTrigger(ctx, id, &at); err != nil {
		return time.Time{}, err
	}
	m.register(id, at)
	metrics.Snoozes.Inc()
	m.event(ctx, now, id, "snoozed", map[string]any{"until": at.UnixMilli()})
	return at, nil
}

// Dismiss skips the upcoming occurrence and arms the one after it.
func (m *Manager) Dismiss(ctx context.Context, id int64) (model.Alarm, error) {
	a, err := m.store.GetAlarm(ctx, id)
	if err != nil {
		return model.Alarm{}, err
	}
	now := m.now()
	from := now
	if a.NextTrigger != nil && a.NextTrigger.After(now) {
		from = *a.NextTrigger
	}
	// Treat the skipped occurrence as consumed so a window does not re-arm inside it.
	skipped := a
	skipped.LastFiredAt = &from
	a.NextTrigger = m.compute(skipped, from)
	if err := m.store.SetNextTrigger(ctx, id, a.NextTrigger); err != nil {
		return model.Alarm{}, err
	}
	m.apply(a, now)
	m.event(ctx, now, id, "dismissed", map[string]any{"skipped": from.UnixMilli()})
	return a, nil
}

// ReportFired records that the alarm rang at firedAt and arms the next occurrence.
func (m *Manager) ReportFired(ctx context.Context, id int64, firedAt time.Time) (model.Alarm, error) {
	a, err := m.store.GetAlarm(ctx, id)
	if err != nil {
		return model.Alarm{}, err
	}
	return m.fired(ctx, a, firedAt)
}

func (m *Manager) fired(ctx context.Context, a model.Alarm, firedAt time.Time) (model.Alarm, error) {
	if a.NextTrigger != nil {
		metrics.ObserveFireLag(*a.NextTrigger, firedAt)
	}
	a.LastFiredAt = &firedAt
	now := m.now()
	from := now
	if firedAt.After(now) {
		from = firedAt
	}
	a.NextTrigger = m.compute(a, from)
	if err := m.store.RecordFired(ctx, a.ID, firedAt, a.NextTrigger); err != nil {
		return model.Alarm{}, err
	}
	m.apply(a, now)
	metrics.AlarmsFired.Inc()
	m.event(ctx, firedAt, a.ID, "fired", map[string]any{"next": fmtTrigger(a.NextTrigger)})
	return a, nil
}

// Ring handles a wake-up the registrar armed for armedAt. Another process may
// have disabled, dismissed or snoozed the alarm since; if the stored trigger no
// longer matches armedAt the stored state is re-armed and nothing rings.
// Notification failures are logged, not returned.
func (m *Manager) Ring(ctx context.Context, id int64, armedAt time.Time) error {
	m.mu.Lock()
	delete(m.registered, id)
	m.mu.Unlock()

	a, err := m.store.GetAlarm(ctx, id)
	if err != nil {
		return err
	}
	now := m.now()
	if !a.Enabled || a.NextTrigger == nil || !a.NextTrigger.Equal(armedAt) {
		logging.Info("ring_stale", map[string]any{"id": id, "armed": armedAt.Format(time.RFC3339), "enabled": a.Enabled, "next": fmtTrigger(a.NextTrigger)})
		m.apply(a, now)
		return nil
	}
	a, err = m.fired(ctx, a, now)
	if err != nil {
		return err
	}
	logging.Info("alarm_ring", map[string]any{"id": id, "label": a.Label, "next": fmtTrigger(a.NextTrigger)})
	if m.notifier != nil {
		if err := m.notifier.Ring(ctx, a, now); err != nil {
			logging.Error("alarm_notify_error", map[string]any{"id": id, "error": err.Error()})
		}
	}
	return nil
}

// NextUpcoming returns the enabled alarm with the soonest stored trigger after now.
func NextUpcoming(alarms []model.Alarm, now time.Time) (model.Alarm, bool) {
	var best model.Alarm
	found := false
	for _, a := range alarms {
		if !a.Enabled || a.NextTrigger == nil || !a.NextTrigger.After(now) {
			continue
		}
		if !found || a.NextTrigger.Before(*best.NextTrigger) {
			best, found = a, true
		}
	}
	return best, found
}

func (m *Manager) compute(a model.Alarm, now time.Time) *time.Time {
	t, ok := schedule.NextTrigger(a, now, m.newSource())
	mode := string(a.ModeName())
	if mode == "" {
		mode = "invalid"
	}
	metrics.ObserveTrigger(mode, ok)
	if !ok {
		return nil
	}
	return &t
}

// apply brings the registrar in line with a. It reports whether anything changed.
func (m *Manager) apply(a model.Alarm, now time.Time) (scheduled, cancelled bool) {
	if a.Enabled && a.NextTrigger != nil && a.NextTrigger.After(now) {
		return m.register(a.ID, *a.NextTrigger), false
	}
	return false, m.unregister(a.ID)
}

func (m *Manager) register(id int64, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.registered[id]; ok && prev.Equal(at) {
		return false
	}
	m.registered[id] = at
	m.reg.Schedule(id, at)
	return true
}

func (m *Manager) unregister(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registered[id]; !ok {
		return false
	}
	delete(m.registered, id)
	m.reg.Cancel(id)
	return true
}

func (m *Manager) event(ctx context.Context, ts time.Time, id int64, typ string, payload map[string]any) {
	if _, err := m.store.PutEvent(ctx, ts, id, typ, payload); err != nil {
		logging.Error("event_log_error", map[string]any{"id": id, "type": typ, "error": err.Error()})
	}
}

func validate(a model.Alarm) error {
	switch s := a.Schedule.(type) {
	case model.Fixed:
		if !s.At.Valid() {
			return fmt.Errorf("%w: fixed time %s", ErrInvalidAlarm, s.At)
		}
	case model.Window:
		if !s.Start.Valid() || !s.End.Valid() {
			return fmt.Errorf("%w: window %s-%s", ErrInvalidAlarm, s.Start, s.End)
		}
	}
	return nil
}

func fmtTrigger(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
