package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/analytics"
	"threshold/internal/cmdlog"
	"threshold/internal/jobs"
)

var (
	statsDays int
	statsType string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show hourly alarm activity from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("stats", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			end := time.Now().In(a.loc)
			start := end.AddDate(0, 0, -statsDays)
			events, err := a.db.LoadEventsRange(ctx, start, end, statsType)
			if err != nil {
				return err
			}
			buckets := analytics.HourlyFirings(events, a.loc)
			keys := analytics.SortedBucketKeys(buckets)
			perAlarm := analytics.PerAlarm(events)

			if jsonOutput {
				hours := make([]map[string]any, 0, len(keys))
				for _, k := range keys {
					hours = append(hours, map[string]any{"hour": k, "counts": buckets[k]})
				}
				out := map[string]any{"from": start, "to": end, "hours": hours, "perAlarm": perAlarm}
				if last, ok := jobs.LastResync(ctx, a.db); ok {
					out["lastResync"] = last
				}
				return printJSON(cmd, out)
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No events in range.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "HOUR\tEVENTS")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k.Format("Mon Jan 2 15:00"), formatCounts(buckets[k]))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if last, ok := jobs.LastResync(ctx, a.db); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "\nLast resync: %s\n", last.In(a.loc).Format(time.RFC1123))
			}
			return nil
		})
	},
}

func formatCounts(m map[string]int) string {
	types := make([]string, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s=%d", t, m[t]))
	}
	return strings.Join(parts, " ")
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "look back this many days")
	statsCmd.Flags().StringVar(&statsType, "type", "", "only this event type (fired, snoozed, dismissed, imported)")
	rootCmd.AddCommand(statsCmd)
}
