package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/alarms"
	"threshold/internal/cmdlog"
	"threshold/internal/model"
	"threshold/internal/util"
)

var (
	addSched      scheduleFlags
	addLabel      string
	addDisabled   bool
	addSoundURI   string
	addSoundTitle string
	snoozeMinutes int
	firedAt       string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an alarm",
	Example: `  threshold add --fixed 06:30 --days weekdays --label gym
  threshold add --window 23:00-02:00 --days fri,sat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("add", func() error {
			s, days, err := addSched.build()
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			saved, err := a.mgr.Save(cmd.Context(), model.Alarm{
				Label:      util.NormalizeWhitespace(addLabel),
				Enabled:    !addDisabled,
				Schedule:   s,
				ActiveDays: days,
				SoundURI:   addSoundURI,
				SoundTitle: addSoundTitle,
			})
			if err != nil {
				return err
			}
			return printAlarm(cmd, saved, a)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List alarms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("list", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			list, err := a.mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]alarmView, 0, len(list))
			for _, al := range list {
				views = append(views, viewOf(al, a.loc))
			}
			if jsonOutput {
				return printJSON(cmd, views)
			}
			if len(views) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alarms.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tON\tSCHEDULE\tDAYS\tNEXT\tLAST FIRED")
			for _, v := range views {
				label := v.Label
				if label == "" {
					label = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\t%s\t%s\n",
					v.ID, label, v.Enabled, v.Schedule, v.ActiveDays, fmtInstant(v.NextTrigger), fmtInstant(v.LastFiredAt))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if up, ok := alarms.NextUpcoming(list, time.Now()); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "\nNext up: #%d at %s\n", up.ID, fmtInstant(viewOf(up, a.loc).NextTrigger))
			}
			return nil
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <id> on|off",
	Short: "Enable or disable an alarm",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("toggle", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var enabled bool
			switch args[1] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("want on or off, got %q", args[1])
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			al, err := a.mgr.Toggle(cmd.Context(), id, enabled)
			if err != nil {
				return err
			}
			return printAlarm(cmd, al, a)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alarm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("delete", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.mgr.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted alarm %d.\n", id)
			return nil
		})
	},
}

var snoozeCmd = &cobra.Command{
	Use:   "snooze <id>",
	Short: "Push an alarm's next ring back by a few minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("snooze", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			until, err := a.mgr.Snooze(cmd.Context(), id, snoozeMinutes)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd, map[string]any{"id": id, "until": until, "untilMillis": until.UnixMilli()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d snoozed until %s.\n", id, fmtInstant(&until))
			return nil
		})
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Skip an alarm's upcoming ring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("dismiss", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			al, err := a.mgr.Dismiss(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printAlarm(cmd, al, a)
		})
	},
}

var firedCmd = &cobra.Command{
	Use:   "fired <id>",
	Short: "Record that an alarm rang",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("fired", func() error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			at := time.Now().In(a.loc)
			if firedAt != "" {
				if at, err = parseInstant(firedAt, a.loc); err != nil {
					return err
				}
			}
			al, err := a.mgr.ReportFired(cmd.Context(), id, at)
			if err != nil {
				return err
			}
			return printAlarm(cmd, al, a)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import alarms from a JSON list of {hour, minute, label}",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("import", func() error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var reqs []alarms.Imported
			if err := json.Unmarshal(b, &reqs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			created, err := a.mgr.Import(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			if jsonOutput {
				views := make([]alarmView, 0, len(created))
				for _, al := range created {
					views = append(views, viewOf(al, a.loc))
				}
				return printJSON(cmd, views)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d alarms (%d duplicates skipped).\n", len(created), len(reqs), len(reqs)-len(created))
			return nil
		})
	},
}

func printAlarm(cmd *cobra.Command, al model.Alarm, a *app) error {
	v := viewOf(al, a.loc)
	if jsonOutput {
		return printJSON(cmd, v)
	}
	state := "on"
	if !v.Enabled {
		state = "off"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "#%d %s [%s] %s, next: %s\n", v.ID, v.Schedule, v.ActiveDays, state, fmtInstant(v.NextTrigger))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alarm id %q", s)
	}
	return id, nil
}

func init() {
	addCmd.Flags().StringVar(&addSched.fixed, "fixed", "", "ring at HH:MM")
	addCmd.Flags().StringVar(&addSched.window, "window", "", "ring somewhere in HH:MM-HH:MM")
	addCmd.Flags().StringVar(&addSched.days, "days", "everyday", "active days: everyday, weekdays, weekends or mon,wed,fri")
	addCmd.Flags().StringVar(&addLabel, "label", "", "alarm label")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "create the alarm switched off")
	addCmd.Flags().StringVar(&addSoundURI, "sound-uri", "", "sound to play")
	addCmd.Flags().StringVar(&addSoundTitle, "sound-title", "", "display name of the sound")

	snoozeCmd.Flags().IntVar(&snoozeMinutes, "minutes", 0, "snooze length (default from config)")
	firedCmd.Flags().StringVar(&firedAt, "at", "", "RFC3339 time it rang (default now)")

	rootCmd.AddCommand(addCmd, listCmd, toggleCmd, deleteCmd, snoozeCmd, dismissCmd, firedCmd, importCmd)
}
