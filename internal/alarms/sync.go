package alarms

import (
	"context"
	"fmt"
	"time"

	"threshold/internal/logging"
	"threshold/internal/model"
	"threshold/internal/util"
)

// Imported is an alarm handed over by an external "set alarm" request.
type Imported struct {
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	Label  string `json:"label"`
}

// Import creates an enabled fixed alarm for each request, skipping any that
// match an existing fixed alarm by time and normalized label.
func (m *Manager) Import(ctx context.Context, reqs []Imported) ([]model.Alarm, error) {
	existing, err := m.store.ListAlarms(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		if f, ok := a.Schedule.(model.Fixed); ok {
			seen[importKey(f.At, a.Label)] = true
		}
	}

	var created []model.Alarm
	for _, r := range reqs {
		at := model.TimeOfDay{Hour: r.Hour, Minute: r.Minute}
		if !at.Valid() {
			return created, fmt.Errorf("%w: import time %02d:%02d", ErrInvalidAlarm, r.Hour, r.Minute)
		}
		key := importKey(at, r.Label)
		if seen[key] {
			logging.Debug("import_duplicate", map[string]any{"at": at.String(), "label": r.Label})
			continue
		}
		a, err := m.Save(ctx, model.Alarm{
			Label:      util.NormalizeWhitespace(r.Label),
			Enabled:    true,
			Schedule:   model.Fixed{At: at},
			ActiveDays: m.importDays,
		})
		if err != nil {
			return created, err
		}
		seen[key] = true
		created = append(created, a)
		m.event(ctx, m.now(), a.ID, "imported", map[string]any{"at": at.String()})
	}
	return created, nil
}

func importKey(at model.TimeOfDay, label string) string {
	return at.String() + "|" + util.NormalizeLabel(label)
}

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	Alarms     int `json:"alarms"`
	Recomputed int `json:"recomputed"`
	Scheduled  int `json:"scheduled"`
	Cancelled  int `json:"cancelled"`
}

// Sync recomputes stale triggers and reconciles the registrar with the store:
// changed triggers are re-registered, disabled or removed alarms cancelled.
func (m *Manager) Sync(ctx context.Context) (SyncReport, error) {
	var rep SyncReport
	list, err := m.store.ListAlarms(ctx)
	if err != nil {
		return rep, err
	}
	now := m.now()
	present := make(map[int64]bool, len(list))
	for _, a := range list {
		present[a.ID] = true
		rep.Alarms++
		if a.Enabled && (a.NextTrigger == nil || !a.NextTrigger.After(now)) {
			a.NextTrigger = m.compute(a, now)
			if err := m.store.SetNextTrigger(ctx, a.ID, a.NextTrigger); err != nil {
				return rep, fmt.Errorf("alarm %d: %w", a.ID, err)
			}
			rep.Recomputed++
		}
		scheduled, cancelled := m.apply(a, now)
		if scheduled {
			rep.Scheduled++
		}
		if cancelled {
			rep.Cancelled++
		}
	}

	for _, id := range m.registeredIDs() {
		if !present[id] && m.unregister(id) {
			rep.Cancelled++
		}
	}
	return rep, nil
}

// Registered returns the trigger currently armed for id.
func (m *Manager) Registered(id int64) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.registered[id]
	return t, ok
}

func (m *Manager) registeredIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.registered))
	for id := range m.registered {
		ids = append(ids, id)
	}
	return ids
}
