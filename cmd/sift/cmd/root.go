// Package cmd provides the CLI commands for sift.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/sift/internal/config"
	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/logging"
	"github.com/Aman-CERP/sift/internal/profiling"
	"github.com/Aman-CERP/sift/pkg/version"
)

// rootOptions holds the persistent flags and the per-run resources they start.
type rootOptions struct {
	debug   bool
	dataDir string
	backend string
	profile profiling.Options

	profiler       *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the sift CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sift",
		Short: "Schema-on-first-write document indexing service",
		Long: `sift stores JSON documents in named indexes and makes them searchable
by free-text query. An index is created by the first document sent to it,
and that document's fields become the index schema.

Run 'sift serve' to start the HTTP API, or use the index, search, describe
and list commands to work with a data directory directly.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.start,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return opts.stop()
		},
	}

	cmd.SetVersionTemplate("sift version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.sift/logs/")
	cmd.PersistentFlags().StringVarP(&opts.dataDir, "data", "d", "", "Service root; indexes live under <data>/data (default from config)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Storage backend: sqlite or bleve (default from config)")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newIndexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newDescribeCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints any error for the terminal.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, serrors.FormatForCLI(err))
	}
	return err
}

// start configures CLI logging and profiling. One-shot commands log warnings
// only; serve raises the level once its config is loaded.
func (o *rootOptions) start(_ *cobra.Command, _ []string) error {
	if err := o.setupLogging("warn"); err != nil {
		return err
	}

	if o.profile.Enabled() {
		session, err := profiling.Start(o.profile)
		if err != nil {
			return err
		}
		o.profiler = session
	}
	return nil
}

func (o *rootOptions) stop() error {
	err := o.profiler.Stop()
	o.profiler = nil

	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
	return err
}

// setupLogging (re)installs the default logger at level, or at debug with
// file output when --debug is set.
func (o *rootOptions) setupLogging(level string) error {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}

	cleanup, err := logging.SetupDefault(level, o.debug)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	return nil
}

// loadConfig loads configuration for the working directory and applies
// the --data and --backend flags on top.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Storage.Root = o.dataDir
	}
	if o.backend != "" {
		cfg.Storage.Backend = o.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("config_loaded",
		slog.String("root", cfg.Storage.Root),
		slog.String("backend", cfg.Storage.Backend))
	return cfg, nil
}

