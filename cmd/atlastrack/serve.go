package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlastrack/atlastrack/internal/alerts"
	"github.com/atlastrack/atlastrack/internal/api"
	"github.com/atlastrack/atlastrack/internal/config"
	"github.com/atlastrack/atlastrack/internal/metrics"
	"github.com/atlastrack/atlastrack/internal/scheduler"
	"github.com/atlastrack/atlastrack/internal/scraper"
	"github.com/atlastrack/atlastrack/internal/store"
	"github.com/atlastrack/atlastrack/internal/ws"
	"github.com/atlastrack/atlastrack/pkg/types"
)

const shutdownTimeout = 25 * time.Second

var staticDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh scheduler and the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&staticDir, "static-dir", "", "serve static files from this directory at / (overrides server.static_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(os.Stdout, cfg.Logging)

	slog.Info("atlastrack starting",
		"config", configPath,
		"object", cfg.Tracker.Object,
		"http_port", cfg.Server.HTTPPort,
		"refresh_interval", cfg.Tracker.RefreshInterval().String(),
		"auth_mode", cfg.Server.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	primary := scraper.NewPrimary(cfg.Tracker.Primary)
	secondary, err := scraper.NewSecondary(cfg.Tracker.Secondary)
	if err != nil {
		return err
	}

	alertEngine, err := alerts.New(cfg.Tracker.Object, cfg.Alerts)
	if err != nil {
		return err
	}

	// The hub reads from the store and the store notifies the hub.
	var hub *ws.Hub
	st := store.New(
		store.WithNotify(metrics.SetSnapshot),
		store.WithNotify(alertEngine.Evaluate),
		store.WithNotify(func(s types.Snapshot) { hub.Notify(s) }),
	)
	hub = ws.New(st, cfg.Server.WSInterval)
	go st.Run(ctx)
	go hub.Run(ctx)

	limiter := api.NewRateLimiter(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
	go limiter.Run(ctx)

	apiHandler := api.New(st, api.Config{
		ServerName: cfg.Server.Name,
		Primary:    primary,
		Secondary:  secondary,
		Alerts:     alertEngine,
		Auth:       cfg.Server.Auth,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", limiter.Middleware(apiHandler))
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/ws/stream", hub)

	dir := cfg.Server.StaticDir
	if staticDir != "" {
		dir = staticDir
	}
	if dir != "" {
		mux.Handle("/", staticHandler(dir))
		slog.Info("serving static files", "dir", dir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           api.SecurityHeaders(api.CORS(mux, cfg.Server.Auth.EffectiveHeader())),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	sched := scheduler.New(primary, secondary, st, cfg.Tracker.RefreshInterval())
	if err := sched.Start(ctx); err != nil {
		return err
	}

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(c *config.Config) {
				sched.Reschedule(c.Tracker.RefreshInterval())
			})
			if err != nil {
				slog.Error("config: watch failed", "path", configPath, "err", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		slog.Error("HTTP server stopped", "err", err)
		cancel()
	}

	slog.Info("atlastrack shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		slog.Warn("scheduler: cycles still running at shutdown")
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown", "err", err)
	}
	alertEngine.Wait()
	return nil
}

// staticHandler serves dir, falling back to index.html for unknown paths.
func staticHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
