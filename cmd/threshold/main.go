package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"threshold/internal/alarms"
	"threshold/internal/cmdlog"
	"threshold/internal/config"
	"threshold/internal/logging"
	"threshold/internal/store/alarmdb"
	"threshold/internal/theme"
)

var version = "dev"

var (
	cfgFile    string
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Alarms that ring at a fixed time or somewhere inside a window",
	Long: `threshold stores alarms, computes when each one rings next, and runs a
daemon that fires them. Window alarms ring at a random instant inside their
window, at most once per activation.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logging.SetOutput(os.Stderr, level)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file and create the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("init", func() error {
			cfg := config.Default()
			cfg.ResolveEnv()
			if err := config.Save(cfgFile, cfg); err != nil {
				return err
			}
			db, err := alarmdb.Open(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			abs, _ := filepath.Abs(cfgFile)
			theme.PrintBanner(cmd.OutOrStdout(), version)
			fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
			fmt.Fprintln(cmd.OutOrStdout(), "Database:", cfg.Storage.DBPath)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version banner",
	Run: func(cmd *cobra.Command, args []string) {
		theme.PrintBanner(cmd.OutOrStdout(), version)
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./threshold.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(initCmd, versionCmd)
}

// app is what most commands need: config, the store and a manager over it.
type app struct {
	cfg config.Config
	loc *time.Location
	db  *alarmdb.DB
	mgr *alarms.Manager
}

func loadConfig() (config.Config, *time.Location, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	loc, err := cfg.Daemon.Loc()
	return cfg, loc, err
}

// openApp wires a manager with reg as its registrar; nil means changes are
// only persisted and a running daemon picks them up on its next resync.
func openApp(reg alarms.Registrar) (*app, error) {
	cfg, loc, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, loc, reg)
}

func newApp(cfg config.Config, loc *time.Location, reg alarms.Registrar, opts ...alarms.Option) (*app, error) {
	db, err := alarmdb.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	opts = append([]alarms.Option{
		alarms.WithClock(func() time.Time { return time.Now().In(loc) }),
		alarms.WithSnooze(time.Duration(cfg.Alarms.SnoozeMinutes) * time.Minute),
		alarms.WithImportDays(cfg.Alarms.ImportDaySet()),
	}, opts...)
	return &app{cfg: cfg, loc: loc, db: db, mgr: alarms.New(db, reg, opts...)}, nil
}

func (a *app) Close() error { return a.db.Close() }

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
