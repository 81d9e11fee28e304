package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/pkg/client"
)

// MonitorOptions holds flags for the monitor command.
type MonitorOptions struct {
	*RootOptions
	Interval time.Duration
	Window   time.Duration
	Once     bool
}

// NewMonitorCommand creates the monitor command.
func NewMonitorCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MonitorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch who is online, grouped by level",
		Long: `Poll the active-student roster of a course and print it grouped by level.

Requires an admin token. Rows last seen at or beyond the staleness
window are hidden. Interval and window default to the server's
configured presence settings.`,
		Example: `  learnctl monitor --course go-basics
  learnctl monitor --course go-basics --once --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default from server)")
	cmd.Flags().DurationVar(&opts.Window, "window", 0, "staleness window (default from server)")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "print one snapshot and exit")

	return cmd
}

func runMonitor(ctx context.Context, opts *MonitorOptions, w io.Writer) error {
	if err := opts.requireCourse(); err != nil {
		return err
	}
	c, err := opts.client()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	interval, window := resolveTimings(ctx, c, opts)

	out := printer{format: opts.Format, w: w}
	show := func(rosters []models.LevelRoster) {
		_ = out.emit(rosters, func(w io.Writer) { writeRoster(w, rosters, time.Now()) })
	}

	if opts.Once {
		students, err := c.GetActiveStudents(ctx, opts.Course)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to get active students", err)
		}
		show(presence.GroupByLevel(presence.FreshStudents(students, window)))
		return nil
	}

	monitor := presence.NewMonitor(c, opts.Course, interval, window, show)
	monitor.Run(ctx)
	return nil
}

// resolveTimings fills unset flags from the server's presence settings,
// falling back to the package defaults when the server cannot be asked
func resolveTimings(ctx context.Context, c *client.Client, opts *MonitorOptions) (interval, window time.Duration) {
	interval, window = opts.Interval, opts.Window
	if interval > 0 && window > 0 {
		return interval, window
	}

	var serverInterval, serverWindow time.Duration
	if settings, err := c.PresenceSettings(ctx); err == nil {
		serverInterval = time.Duration(settings.MonitorIntervalSeconds) * time.Second
		serverWindow = time.Duration(settings.StalenessWindowSeconds) * time.Second
	}
	if serverInterval <= 0 {
		serverInterval = presence.DefaultMonitorInterval
	}
	if serverWindow <= 0 {
		serverWindow = presence.DefaultStalenessWindow
	}

	if interval <= 0 {
		interval = serverInterval
	}
	if window <= 0 {
		window = serverWindow
	}
	return interval, window
}

func writeRoster(w io.Writer, rosters []models.LevelRoster, now time.Time) {
	fmt.Fprintf(w, "== %s ==\n", now.Format(time.TimeOnly))
	if len(rosters) == 0 {
		fmt.Fprintln(w, "No learners online")
		return
	}
	for _, r := range rosters {
		fmt.Fprintf(w, "%s (%d)\n", r.LevelID, len(r.Students))
		for _, st := range r.Students {
			fmt.Fprintf(w, "  %-24s %4ds ago\n", st.Name, st.SecondsSinceLastSeen)
		}
	}
}
