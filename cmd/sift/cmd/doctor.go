package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sift/internal/config"
	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/preflight"
	"github.com/Aman-CERP/sift/internal/store"
	"github.com/Aman-CERP/sift/internal/ui"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the data directory can be served",
		Long: `Run the preflight checks 'sift serve' runs on a new data directory:
write permissions, free disk space, file descriptor limit, the data directory
lock, and index artifacts left by a different backend.

Passing checks are remembered in the data directory, so serve skips them
next time. Run doctor again after moving or restoring a data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			checker, err := newChecker(cfg, out, verbose)
			if err != nil {
				return err
			}
			results := checker.RunAll(cmd.Context(), cfg.Storage.Root)

			if jsonOutput {
				if err := ui.NewStatusRenderer(out, true).RenderJSON(results); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}
			return finishPreflight(checker, results, cfg)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")

	return cmd
}

func newChecker(cfg *config.Config, out io.Writer, verbose bool) (*preflight.Checker, error) {
	backend, err := store.NewBackend(cfg.Storage.Backend, cfg.Storage.SQLiteCacheMB)
	if err != nil {
		return nil, err
	}
	return preflight.New(
		preflight.WithBackend(backend),
		preflight.WithOutput(out),
		preflight.WithVerbose(verbose),
	), nil
}

// finishPreflight fails on critical results and otherwise records the pass.
func finishPreflight(checker *preflight.Checker, results []preflight.CheckResult, cfg *config.Config) error {
	dataDir := index.DataDir(cfg.Storage.Root)
	if checker.HasCriticalFailures(results) {
		_ = preflight.ClearMarker(dataDir)
		return serrors.New(serrors.ErrCodeStorageUnavailable, "preflight checks failed", nil).
			WithDetail("data_dir", dataDir).
			WithSuggestion("run 'sift doctor -v' for details")
	}
	if err := preflight.MarkPassed(dataDir); err != nil {
		slog.Warn("preflight_marker_failed", slog.String("error", err.Error()))
	}
	return nil
}

// preflightOnce runs the checks for serve when the data directory has not
// passed them before. Results are printed only when a required check fails.
func preflightOnce(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if !preflight.NeedsCheck(index.DataDir(cfg.Storage.Root)) {
		return nil
	}

	checker, err := newChecker(cfg, out, true)
	if err != nil {
		return err
	}
	results := checker.RunAll(ctx, cfg.Storage.Root)
	if checker.HasCriticalFailures(results) {
		checker.PrintResults(results)
	}
	slog.Debug("preflight_completed", slog.String("status", checker.SummaryStatus(results)))
	return finishPreflight(checker, results, cfg)
}
