package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sift/internal/logging"
	"github.com/Aman-CERP/sift/internal/ui"
)

type logsOptions struct {
	lines   int
	follow  bool
	level   string
	pattern string
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View server logs written with --debug",
		Example: `  sift logs -n 100
  sift logs -f --level warn
  sift logs --grep insert_failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow new log entries")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.pattern, "grep", "", "Only show lines matching this regular expression")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file (default ~/.sift/logs/server.log)")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	cfg := logging.ViewerConfig{Level: opts.level, NoColor: ui.NoColorFor(out)}
	if opts.pattern != "" {
		re, err := regexp.Compile(opts.pattern)
		if err != nil {
			return fmt.Errorf("invalid --grep pattern: %w", err)
		}
		cfg.Pattern = re
	}
	viewer := logging.NewViewer(cfg, out)

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	followed := make(chan logging.LogEntry)
	done := make(chan error, 1)
	go func() {
		done <- viewer.Follow(ctx, path, followed)
	}()
	return printFollowed(ctx, viewer, followed, done)
}

func printFollowed(ctx context.Context, viewer *logging.Viewer, entries <-chan logging.LogEntry, done <-chan error) error {
	for {
		select {
		case entry := <-entries:
			viewer.Print([]logging.LogEntry{entry})
		case err := <-done:
			return err
		case <-ctx.Done():
			return <-done
		}
	}
}
