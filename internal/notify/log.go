package notify

import (
	"context"
	"time"

	"threshold/internal/config"
	"threshold/internal/logging"
	"threshold/internal/model"
)

// LogNotifier only writes a log line per ring.
type LogNotifier struct{}

func (LogNotifier) Ring(_ context.Context, a model.Alarm, firedAt time.Time) error {
	fields := map[string]any{"id": a.ID, "label": a.Label, "schedule": a.Describe(), "fired_at": firedAt.Format(time.RFC3339)}
	if a.NextTrigger != nil {
		fields["next"] = a.NextTrigger.Format(time.RFC3339)
	}
	logging.Info("ring", fields)
	return nil
}

// Ringer is what New returns.
type Ringer interface {
	Ring(ctx context.Context, a model.Alarm, firedAt time.Time) error
}

// New returns a webhook notifier, or a log-only one when no URL is configured.
func New(cfg config.NotifyConfig) Ringer {
	if cfg.WebhookURL == "" {
		return LogNotifier{}
	}
	return NewWebhook(cfg)
}
