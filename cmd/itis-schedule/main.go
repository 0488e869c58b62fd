// Command itis-schedule turns the published ITIS timetable sheet into
// per-group (and optionally per-student) iCalendar files.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/renattele/itis-schedule/internal/config"
	"github.com/renattele/itis-schedule/internal/electives"
	"github.com/renattele/itis-schedule/internal/grid"
	"github.com/renattele/itis-schedule/internal/ical"
	appLog "github.com/renattele/itis-schedule/internal/log"
	"github.com/renattele/itis-schedule/internal/schedule"
	"github.com/renattele/itis-schedule/internal/sheets"
)

func main() {
	var (
		configPath string
		verbose    bool
	)
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "itis-schedule",
		Short: "Generate iCal files from the ITIS schedule sheet",
		Long: `itis-schedule downloads the published schedule spreadsheet, parses the
weekly grid and writes one subscribable .ics calendar per student group.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				appLog.SetLevel(appLog.LevelDebug)
			}
			if configPath == "" {
				return nil
			}
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config %s: %w", configPath, err)
			}
			// CLI flags the user actually set override file values.
			applyFlagOverrides(cmd, cfg, loaded)
			*cfg = *loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&cfg.SpreadsheetID, "spreadsheet-id", cfg.SpreadsheetID, "Google Sheets document ID")
	rootCmd.Flags().StringVar(&cfg.GID, "gid", cfg.GID, "Sheet tab ID")
	rootCmd.Flags().StringVar(&cfg.Format, "format", cfg.Format, "Export format: csv or xlsx")
	rootCmd.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for generated .ics files")
	rootCmd.Flags().StringVar(&cfg.SemesterStart, "semester-start", cfg.SemesterStart, "Semester start date YYYY-MM-DD")
	rootCmd.Flags().StringVar(&cfg.SemesterEnd, "semester-end", cfg.SemesterEnd, "Semester end date YYYY-MM-DD")
	rootCmd.Flags().StringVar(&cfg.ChoicesID, "choices-id", cfg.ChoicesID, "Elective choices sheet ID (enables student calendars)")
	rootCmd.Flags().StringVar(&cfg.Refresh, "refresh", cfg.Refresh, "Cron expression; regenerate on this schedule instead of exiting")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlagOverrides copies explicitly-set flag values over the loaded
// file config, so flags always win.
func applyFlagOverrides(cmd *cobra.Command, flags, loaded *config.Config) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if set("spreadsheet-id") {
		loaded.SpreadsheetID = flags.SpreadsheetID
	}
	if set("gid") {
		loaded.GID = flags.GID
	}
	if set("format") {
		loaded.Format = flags.Format
	}
	if set("output-dir") {
		loaded.OutputDir = flags.OutputDir
	}
	if set("semester-start") {
		loaded.SemesterStart = flags.SemesterStart
	}
	if set("semester-end") {
		loaded.SemesterEnd = flags.SemesterEnd
	}
	if set("choices-id") {
		loaded.ChoicesID = flags.ChoicesID
	}
	if set("refresh") {
		loaded.Refresh = flags.Refresh
	}
}

func run(cfg *config.Config) error {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Refresh == "" {
		return runOnce(ctx, cfg)
	}

	// Daemon mode: regenerate on the cron schedule until cancelled.
	// One failing tick is logged and the next tick still runs.
	if err := runOnce(ctx, cfg); err != nil {
		appLog.Error("initial generation failed", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Refresh, func() {
		if err := runOnce(ctx, cfg); err != nil {
			appLog.Error("scheduled generation failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", cfg.Refresh, err)
	}

	appLog.Info("daemon started", "refresh", cfg.Refresh)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("daemon stopped")
	return nil
}

// runOnce executes one full fetch → parse → generate → write pass.
func runOnce(ctx context.Context, cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	rng, err := semesterRange(cfg, loc)
	if err != nil {
		return err
	}

	fetcher := sheets.NewFetcher()

	format := sheets.FormatCSV
	if cfg.Format == "xlsx" {
		format = sheets.FormatXLSX
	}
	body, err := fetcher.Fetch(ctx, cfg.SpreadsheetID, cfg.GID, format)
	if err != nil {
		return err
	}

	var g *grid.Grid
	if format == sheets.FormatXLSX {
		g, err = grid.FromXLSX(body)
	} else {
		g, err = grid.FromCSV(bytes.NewReader(body))
	}
	if err != nil {
		return err
	}

	table := schedule.DefaultSlotTable()
	sched, err := schedule.Parse(g, table)
	if err != nil {
		return err
	}

	opts := ical.Options{Location: loc, OmitType: cfg.OmitType}
	calendars, err := ical.Generate(sched, table, rng, opts)
	if err != nil {
		return err
	}
	if err := ical.WriteFiles(cfg.OutputDir, calendars); err != nil {
		return err
	}
	appLog.Info("group calendars written", "groups", len(calendars), "output_dir", cfg.OutputDir)

	if cfg.ChoicesID == "" {
		return nil
	}
	return runElectives(ctx, cfg, fetcher, sched, table, rng, opts)
}

// runElectives fetches the per-student choices sheet and writes student
// calendars under <output-dir>/students.
func runElectives(ctx context.Context, cfg *config.Config, fetcher *sheets.Fetcher, sched schedule.Schedule, table schedule.SlotTable, rng ical.Range, opts ical.Options) error {
	body, err := fetcher.Fetch(ctx, cfg.ChoicesID, cfg.ChoicesGID, sheets.FormatCSV)
	if err != nil {
		return err
	}

	choices, err := electives.ParseChoices(bytes.NewReader(body))
	if err != nil {
		return err
	}

	calendars, err := electives.BuildStudentCalendars(sched, table, rng, opts, choices)
	if err != nil {
		return err
	}

	studentsDir := filepath.Join(cfg.OutputDir, "students")
	if err := os.MkdirAll(studentsDir, 0o755); err != nil {
		return fmt.Errorf("creating students dir %s: %w", studentsDir, err)
	}
	for name, data := range calendars {
		path := filepath.Join(studentsDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	appLog.Info("student calendars written", "students", len(calendars), "output_dir", studentsDir)
	return nil
}

func semesterRange(cfg *config.Config, loc *time.Location) (ical.Range, error) {
	start, err := time.ParseInLocation("2006-01-02", cfg.SemesterStart, loc)
	if err != nil {
		return ical.Range{}, fmt.Errorf("invalid semester start %q: %w", cfg.SemesterStart, err)
	}
	end, err := time.ParseInLocation("2006-01-02", cfg.SemesterEnd, loc)
	if err != nil {
		return ical.Range{}, fmt.Errorf("invalid semester end %q: %w", cfg.SemesterEnd, err)
	}
	return ical.Range{Start: start, End: end}, nil
}
