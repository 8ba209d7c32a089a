package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"

	"threshold/internal/model"
)

// Config is the application's configuration model.
// It captures storage, alarm defaults, the daemon, and ring notifications.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Alarms  AlarmsConfig  `yaml:"alarms"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type StorageConfig struct {
	// SQLite file. If empty, read from env THRESHOLD_DB
	DBPath string `yaml:"dbPath"`
}

type AlarmsConfig struct {
	// Default snooze length in minutes
	SnoozeMinutes int `yaml:"snoozeMinutes"`
	// Active days (0=Sunday) for alarms imported from the OS "set alarm" intent
	ImportDays []int `yaml:"importDays"`
}

// ImportDaySet returns ImportDays as a set, defaulting to every day.
func (a AlarmsConfig) ImportDaySet() model.DaySet {
	s := model.NewDaySet(a.ImportDays...)
	if s.Empty() {
		return model.Everyday
	}
	return s
}

type DaemonConfig struct {
	// Cron expression for re-checking stored triggers
	ResyncCron string `yaml:"resyncCron"`
	// Prometheus listen address, e.g. ":9090". If empty, read METRICS_ADDR
	MetricsAddr string `yaml:"metricsAddr"`
	// IANA zone alarms are evaluated in; empty means the host zone
	Location string `yaml:"location"`
}

type NotifyConfig struct {
	// Webhook called when an alarm rings. If empty, read THRESHOLD_WEBHOOK_URL
	WebhookURL  string  `yaml:"webhookURL"`
	RPS         float64 `yaml:"rps"`
	Burst       int     `yaml:"burst"`
	MaxAttempts int     `yaml:"maxAttempts"`
	BackoffMs   int     `yaml:"backoffMs"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{DBPath: "./threshold.db"},
		Alarms:  AlarmsConfig{SnoozeMinutes: 10, ImportDays: []int{0, 1, 2, 3, 4, 5, 6}},
		Daemon:  DaemonConfig{ResyncCron: "*/15 * * * *"},
		Notify:  NotifyConfig{RPS: 1, Burst: 5, MaxAttempts: 4, BackoffMs: 500},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := os.Getenv("THRESHOLD_DB"); c.Storage.DBPath == "" && v != "" {
		c.Storage.DBPath = v
	}
	if c.Daemon.MetricsAddr == "" {
		c.Daemon.MetricsAddr = os.Getenv("METRICS_ADDR")
	}
	if c.Notify.WebhookURL == "" {
		c.Notify.WebhookURL = os.Getenv("THRESHOLD_WEBHOOK_URL")
	}
	if v := os.Getenv("THRESHOLD_SNOOZE_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Alarms.SnoozeMinutes = n
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Storage.DBPath == "" {
		return errors.New("storage.dbPath is empty")
	}
	if c.Alarms.SnoozeMinutes <= 0 {
		return fmt.Errorf("alarms.snoozeMinutes must be positive, got %d", c.Alarms.SnoozeMinutes)
	}
	if c.Daemon.ResyncCron != "" && !gronx.New().IsValid(c.Daemon.ResyncCron) {
		return fmt.Errorf("daemon.resyncCron %q is not a valid cron expression", c.Daemon.ResyncCron)
	}
	if _, err := c.Daemon.Loc(); err != nil {
		return fmt.Errorf("daemon.location: %w", err)
	}
	return nil
}

// Loc resolves the configured location.
func (d DaemonConfig) Loc() (*time.Location, error) {
	if d.Location == "" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Location)
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// LoadOrDefault is Load, falling back to defaults when path does not exist.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.ResolveEnv()
		return cfg, nil
	}
	return cfg, err
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
