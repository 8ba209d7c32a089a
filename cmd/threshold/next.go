package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/cmdlog"
	"threshold/internal/model"
	"threshold/internal/schedule"
)

var (
	nextSched     scheduleFlags
	nextID        int64
	nextNow       string
	nextLastFired string
)

// nextCmd runs one calculation without touching stored state.
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute when an alarm would ring next",
	Example: `  threshold next --window 06:00-07:00 --days weekdays
  threshold next --id 3 --now 2023-11-01T10:00:00Z`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("next", func() error {
			_, loc, err := loadConfig()
			if err != nil {
				return err
			}
			now := time.Now().In(loc)
			if nextNow != "" {
				if now, err = parseInstant(nextNow, loc); err != nil {
					return err
				}
			}

			var al model.Alarm
			if nextID > 0 {
				a, err := openApp(nil)
				if err != nil {
					return err
				}
				defer a.Close()
				if al, err = a.mgr.Get(cmd.Context(), nextID); err != nil {
					return err
				}
			} else {
				s, days, err := nextSched.build()
				if err != nil {
					return err
				}
				al = model.Alarm{Enabled: true, Schedule: s, ActiveDays: days}
			}
			if nextLastFired != "" {
				lf, err := parseInstant(nextLastFired, loc)
				if err != nil {
					return err
				}
				al.LastFiredAt = &lf
			}

			var t time.Time
			var ok bool
			if nextNow == "" {
				t, ok = schedule.Next(al, loc)
			} else {
				t, ok = schedule.NextTrigger(al, now, schedule.NewSource())
			}
			if jsonOutput {
				out := map[string]any{"now": now, "schedule": al.Describe(), "nextTriggerMillis": schedule.Millis(t, ok)}
				if ok {
					out["nextTrigger"] = t
				}
				return printJSON(cmd, out)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No trigger within the next week.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (in %s, %d ms)\n", t.Format(time.RFC1123), t.Sub(now).Round(time.Second), t.UnixMilli())
			return nil
		})
	},
}

func init() {
	nextCmd.Flags().StringVar(&nextSched.fixed, "fixed", "", "ring at HH:MM")
	nextCmd.Flags().StringVar(&nextSched.window, "window", "", "ring somewhere in HH:MM-HH:MM")
	nextCmd.Flags().StringVar(&nextSched.days, "days", "everyday", "active days")
	nextCmd.Flags().Int64Var(&nextID, "id", 0, "use a stored alarm")
	nextCmd.Flags().StringVar(&nextNow, "now", "", "RFC3339 instant to compute from (default now)")
	nextCmd.Flags().StringVar(&nextLastFired, "last-fired", "", "RFC3339 instant the alarm last rang")
	rootCmd.AddCommand(nextCmd)
}
