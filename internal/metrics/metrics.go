package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TriggersComputed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshold_triggers_computed_total",
		Help: "Next-trigger calculations that produced a timestamp",
	}, []string{"mode"})
	TriggersNone = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshold_triggers_none_total",
		Help: "Next-trigger calculations that produced no timestamp",
	}, []string{"mode"})
	AlarmsFired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threshold_alarms_fired_total",
		Help: "Total alarms that rang",
	})
	Snoozes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threshold_snoozes_total",
		Help: "Total snoozes",
	})
	FireLag = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threshold_fire_lag_seconds",
		Help:    "Delay between scheduled trigger and actual firing",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300},
	})
	ResyncRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threshold_resync_runs_total",
		Help: "Total resync runs",
	})
	ResyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threshold_resync_errors_total",
		Help: "Total resync errors",
	})
	ResyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threshold_resync_duration_seconds",
		Help:    "Resync duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	NotifyRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshold_notify_retries_total",
		Help: "Total ring-notification retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshold_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshold_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threshold_command_duration_seconds",
		Help:    "CLI command wall time",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30},
	}, []string{"cmd"})
)

func init() {
	prometheus.MustRegister(TriggersComputed, TriggersNone, AlarmsFired, Snoozes, FireLag,
		ResyncRuns, ResyncErrors, ResyncDuration, NotifyRetries, CommandRuns, CommandErrors, CommandDuration)
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// An empty addr falls back to METRICS_ADDR; if both are empty nothing starts.
func StartServer(addr string) *http.Server {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObserveTrigger counts one calculation result for mode.
func ObserveTrigger(mode string, ok bool) {
	if ok {
		TriggersComputed.WithLabelValues(mode).Inc()
		return
	}
	TriggersNone.WithLabelValues(mode).Inc()
}

// ObserveFireLag records how late a firing was relative to its trigger.
func ObserveFireLag(trigger, fired time.Time) {
	if lag := fired.Sub(trigger).Seconds(); lag >= 0 {
		FireLag.Observe(lag)
	}
}

// ObserveResyncDuration records a run duration
func ObserveResyncDuration(start time.Time) {
	ResyncDuration.Observe(time.Since(start).Seconds())
}

// IncNotifyRetry increments the retry counter for an endpoint.
func IncNotifyRetry(endpoint string) { NotifyRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// ObserveCommandDuration records the time since start and returns it.
func ObserveCommandDuration(cmd string, start time.Time) time.Duration {
	d := time.Since(start)
	CommandDuration.WithLabelValues(cmd).Observe(d.Seconds())
	return d
}
