package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/alarms"
	"threshold/internal/cmdlog"
	"threshold/internal/jobs"
	"threshold/internal/logging"
	"threshold/internal/metrics"
	"threshold/internal/notify"
	"threshold/internal/scheduler"
	"threshold/internal/theme"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the alarm daemon",
	Long: `run arms every enabled alarm, rings each at its trigger, and re-checks the
store on the configured cron so edits from other commands are picked up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("run", func() error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var mgr *alarms.Manager
			sched := scheduler.New(ctx, func(id int64, at time.Time) {
				// Ring re-arms through the scheduler, so it must not run on its goroutine.
				go func() {
					if err := mgr.Ring(ctx, id, at); err != nil {
						logging.Error("ring_error", map[string]any{"id": id, "error": err.Error()})
					}
				}()
			})
			cfg, loc, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, loc, sched, alarms.WithNotifier(notify.New(cfg.Notify)))
			if err != nil {
				return err
			}
			defer a.Close()
			mgr = a.mgr

			if srv := metrics.StartServer(a.cfg.Daemon.MetricsAddr); srv != nil {
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
			}
			theme.PrintBanner(cmd.OutOrStdout(), version)
			logging.Warn("daemon_start", map[string]any{"db": a.cfg.Storage.DBPath, "resync": a.cfg.Daemon.ResyncCron, "location": a.loc.String()})

			cron := a.cfg.Daemon.ResyncCron
			if cron == "" {
				cron = "*/15 * * * *"
			}
			err = jobs.RunResyncLoop(ctx, mgr, a.db, cron)
			if errors.Is(err, context.Canceled) {
				logging.Warn("daemon_stop", nil)
				return nil
			}
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
