package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oho/kmedoids-daemon/internal/api"
	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/metrics"
	"github.com/oho/kmedoids-daemon/internal/pipeline"
	"github.com/oho/kmedoids-daemon/internal/server"
	"github.com/oho/kmedoids-daemon/internal/storage"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve clustering over HTTP and keep a run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

// newHandler wires the HTTP surface: health, metrics, clustering and run history.
func newHandler(cfg config.Config, db *storage.Database, mc *metrics.Collector) http.Handler {
	runner := pipeline.NewRunner(db, mc, cfg.Cluster)

	r := server.NewRouter()
	r.Get("/health", server.HealthHandler(cfg, db))
	r.Method(http.MethodGet, "/metrics", mc.Handler())
	r.Mount("/cluster", api.ClusterRouter(runner, cfg.Server))
	r.Mount("/runs", api.RunsRouter(db))
	return r
}

func serve(ctx context.Context, cfg config.Config) error {
	slog.Info("Starting k-medoids daemon...")
	slog.Info("Configuration loaded", "data_dir", cfg.DataDir, "port", cfg.Port, "policy", cfg.Cluster.Policy)

	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	handler := newHandler(cfg, db, metrics.NewCollector("kmedoids"))

	pidPath := filepath.Join(cfg.DataDir, "daemon.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		slog.Warn("Could not write pid file", "path", pidPath, "error", err)
	}
	defer os.Remove(pidPath)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 60))
	fmt.Printf("  k-medoids daemon\n")
	fmt.Printf("  http://%s\n", addr)
	fmt.Printf("  Data dir: %s\n", cfg.DataDir)
	fmt.Printf("%s\n\n", strings.Repeat("=", 60))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("Daemon ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("Daemon stopped")
	return nil
}
