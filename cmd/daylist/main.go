package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"daylist/internal/config"
	"daylist/internal/core"
	"daylist/internal/storage"
	"daylist/internal/ui"
)

var Version = "dev"

type options struct {
	configPath string
	dbPath     string
	date       string
	now        func() time.Time
}

func main() {
	if err := rootCmd(&options{now: time.Now}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "daylist",
		Short:        "A day-by-day task list",
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $DAYLIST_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database file, overrides db_path")
	cmd.PersistentFlags().StringVarP(&opts.date, "date", "d", "", "day to open as YYYY-MM-DD (default today)")

	cmd.AddCommand(listCmd(opts))
	cmd.AddCommand(addCmd(opts))
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the pending and completed tasks of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, date, err := opts.open()
			if err != nil {
				return err
			}
			defer store.Close()

			ctrl := core.NewController(store, date, log.New(cmd.ErrOrStderr(), "daylist: ", 0))
			if err := ctrl.Load(); err != nil {
				return err
			}
			printDay(cmd.OutOrStdout(), ctrl.View(), cfg.TimeFormat)
			return nil
		},
	}
}

func addCmd(opts *options) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task to a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, date, err := opts.open()
			if err != nil {
				return err
			}
			defer store.Close()

			if at != "" {
				if date, err = atTime(date, at); err != nil {
					return err
				}
			}

			ctrl := core.NewController(store, date, log.New(cmd.ErrOrStderr(), "daylist: ", 0))
			if err := ctrl.Load(); err != nil {
				return err
			}
			t, err := ctrl.OnAddTask(date)
			if err != nil {
				return err
			}
			if err := ctrl.OnTitleChanged(t.ID, args[0]); err != nil {
				return err
			}
			if err := ctrl.OnSubmit(t.ID); err != nil {
				return err
			}
			if _, err := store.Get(t.ID); err != nil {
				return fmt.Errorf("task not added: title is empty")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q on %s\n", args[0], date.Format("Mon 02 Jan 2006 "+cfg.TimeFormat))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "time of day as HH:MM (default now)")
	return cmd
}

func runTUI(opts *options) error {
	cfg, store, date, err := opts.open()
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.LogPath != "" {
		f, err := tea.LogToFile(cfg.LogPath, "daylist")
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	ctrl := core.NewController(store, date, log.Default())
	if err := ctrl.Load(); err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	return ui.Run(ctrl, cfg)
}

func (o *options) open() (config.Config, *storage.Store, time.Time, error) {
	path := o.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return cfg, nil, time.Time{}, fmt.Errorf("failed to load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}

	date, err := parseDay(o.date, o.now())
	if err != nil {
		return cfg, nil, time.Time{}, err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return cfg, nil, time.Time{}, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, store, date, nil
}

// parseDay reads a YYYY-MM-DD day and gives it now's time of day, so tasks
// added to it land at the current clock time.
func parseDay(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.Truncate(time.Second), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), 0, now.Location()), nil
}

func atTime(day time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want HH:MM", hhmm)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}

func printDay(w io.Writer, v core.DayView, timeFormat string) {
	fmt.Fprintln(w, v.Date.Format("Monday, 02 Jan 2006"))
	printSection(w, "Pending", v.Pending, timeFormat)
	printSection(w, "Completed", v.Completed, timeFormat)
}

func printSection(w io.Writer, label string, tasks []core.Task, timeFormat string) {
	fmt.Fprintf(w, "\n%s (%d)\n", label, len(tasks))
	if len(tasks) == 0 {
		fmt.Fprintln(w, "  No tasks found")
		return
	}
	for _, t := range tasks {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		fmt.Fprintf(w, "  %s %s  %s\n", box, t.Date.Format(timeFormat), t.Title)
	}
}
