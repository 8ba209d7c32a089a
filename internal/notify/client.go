// Package notify tells the outside world that an alarm rang.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"threshold/internal/config"
	"threshold/internal/logging"
	"threshold/internal/metrics"
	"threshold/internal/model"
)

// Payload is the JSON body posted for each ring.
type Payload struct {
	AlarmID     int64      `json:"alarmId"`
	Label       string     `json:"label,omitempty"`
	Schedule    string     `json:"schedule"`
	FiredAt     time.Time  `json:"firedAt"`
	NextTrigger *time.Time `json:"nextTrigger,omitempty"`
	SoundURI    string     `json:"soundUri,omitempty"`
}

// Webhook posts ring notifications to a URL.
type Webhook struct {
	url         string
	endpoint    string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewWebhook(cfg config.NotifyConfig) *Webhook {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	backoff := time.Duration(cfg.BackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	endpoint := cfg.WebhookURL
	if u, err := url.Parse(cfg.WebhookURL); err == nil && u.Host != "" {
		endpoint = u.Host
	}
	return &Webhook{
		url:         cfg.WebhookURL,
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     newLimiter(cfg.RPS, cfg.Burst),
		maxAttempts: maxAttempts,
		baseBackoff: backoff,
	}
}

// Ring posts a's payload, retrying throttled and failed deliveries.
func (w *Webhook) Ring(ctx context.Context, a model.Alarm, firedAt time.Time) error {
	body, err := json.Marshal(Payload{
		AlarmID:     a.ID,
		Label:       a.Label,
		Schedule:    a.Describe(),
		FiredAt:     firedAt,
		NextTrigger: a.NextTrigger,
		SoundURI:    a.SoundURI,
	})
	if err != nil {
		return err
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := w.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	logging.Debug("notify_ok", map[string]any{"id": a.ID, "endpoint": w.endpoint})
	return nil
}

func (w *Webhook) doWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := w.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncNotifyRetry(w.endpoint)
		}
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := w.httpClient.Do(req)
		if err == nil {
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("webhook status %d", resp.StatusCode)
			if attempt == w.maxAttempts {
				break
			}
			if err := sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == w.maxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("notify failed after %d attempts: %w", w.maxAttempts, lastErr)
}

// retryAfter honors a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h string, def time.Duration) time.Duration {
	if h == "" {
		return def
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
