package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/calendar"
	"threshold/internal/cmdlog"
	"threshold/internal/schedule"
)

var (
	exportOut   string
	exportCount int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export upcoming rings as an iCalendar file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("export", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			list, err := a.mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			now := time.Now().In(a.loc)
			occ := calendar.Upcoming(list, now, exportCount, schedule.NewSource())
			if jsonOutput {
				return printJSON(cmd, occ)
			}

			var w io.Writer = cmd.OutOrStdout()
			if exportOut != "" && exportOut != "-" {
				f, err := os.Create(exportOut)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := calendar.Export(w, occ, now); err != nil {
				return err
			}
			if exportOut != "" && exportOut != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d events to %s\n", len(occ), exportOut)
			}
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "file to write (default stdout)")
	exportCmd.Flags().IntVar(&exportCount, "count", 7, "occurrences per alarm")
	rootCmd.AddCommand(exportCmd)
}
