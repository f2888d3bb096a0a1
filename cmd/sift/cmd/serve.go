package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/sift/internal/api"
	"github.com/Aman-CERP/sift/internal/config"
	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/output"
	"github.com/Aman-CERP/sift/internal/stats"
	"github.com/Aman-CERP/sift/pkg/version"
)

type serveOptions struct {
	host  string
	port  int
	watch bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API over the data directory.

Every index file under <data>/data is loaded at startup. The first serve of
a data directory runs the 'sift doctor' checks. The data directory
is locked for the lifetime of the server, so other sift commands against the
same directory fail until it stops. SIGINT or SIGTERM shuts the server down
gracefully and closes every index.`,
		Example: `  # Serve ./data on the default port
  sift serve

  # Serve another root on port 7700 with the bleve backend
  sift serve -d /srv/sift -p 7700 --backend bleve

  # Pick up index files copied into the data directory while running
  sift serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = opts.port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Storage.Watch = opts.watch
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := root.setupLogging(cfg.Server.LogLevel); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Listen port (default from config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Register index files that appear in the data directory")

	return cmd
}

// runServe serves until ctx is cancelled. The registry is closed and the
// lock released before it returns.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (err error) {
	if err := preflightOnce(ctx, cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	registry, release, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := release(); cerr != nil {
			slog.Error("registry_close_failed", slog.String("error", cerr.Error()))
			if err == nil {
				err = cerr
			}
		}
	}()

	collector := stats.NewCollector(cfg.Stats.InstanceID, cfg.Stats.TopQueries)
	server := api.NewServer(api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		CORS:            cfg.Server.CORSEnabled(),
		ShutdownTimeout: cfg.Server.ShutdownDuration(),
	}, api.NewHandler(registry, collector))

	out := output.New(cmd.ErrOrStderr())
	out.Successf("%s %s", version.Name, version.Short())
	out.Statusf("📁", "Data: %s (%s)", registry.DataDir(), registry.Backend().Name())
	out.Statusf("📚", "Indexes: %d", registry.Len())
	out.Statusf("🌐", "Listening on http://%s", server.Addr())
	if cfg.Storage.Watch {
		out.Status("👀", "Watching for new index files")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	if cfg.Storage.Watch {
		g.Go(func() error {
			// A failed watcher leaves the server running without it.
			if err := registry.Watch(gctx, index.DefaultSettleDelay); err != nil {
				slog.Warn("watcher_failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	slog.Info("server_stopped")
	return nil
}
