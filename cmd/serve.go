package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/waha/internal/config"
	"github.com/conneroisu/waha/internal/diagnostic"
	apperrors "github.com/conneroisu/waha/internal/errors"
	"github.com/conneroisu/waha/internal/logging"
	"github.com/conneroisu/waha/internal/renderer"
	"github.com/conneroisu/waha/internal/server"
	"github.com/conneroisu/waha/internal/telemetry"
	"github.com/conneroisu/waha/internal/todo"
	"github.com/conneroisu/waha/internal/watcher"
	"github.com/conneroisu/waha/internal/websocket"
)

const diagnosticTracer = telemetry.InstrumentationName + "/diagnostic"

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the web server",
	Long: `Start the web server.

Routes:
  GET  /               hello page
  GET  /another-page   second page
  GET  /api/hello      plain-text greeting
  POST /api/todos      append a todo and render the list
  GET  /assets/*       files from the assets directory
  GET  /healthz        health and version as JSON

Examples:
  waha serve                       # Listen on 0.0.0.0:8000
  waha serve -p 3000               # Listen on port 3000
  waha serve --hot-reload          # Reload browsers on asset changes`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().String("assets-dir", config.DefaultAssetsDir, "Directory served under /assets, relative to the working directory")
	serveCmd.Flags().Bool("hot-reload", false, "Watch the assets directory and reload connected browsers")

	AddFlagValidation(serveCmd, "port", ValidatePort)

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.assets_dir", serveCmd.Flags().Lookup("assets-dir"))
	_ = viper.BindPFlag("development.hot_reload", serveCmd.Flags().Lookup("hot-reload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return apperrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	provider, err := telemetry.Setup(cfg.Tracing, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{
		Config:   cfg,
		Store:    todo.NewStore(),
		Renderer: renderer.NewComponentRenderer(renderer.Options{LiveReload: cfg.Development.HotReload}),
		Brancher: diagnostic.NewBrancher(logger, provider.TracerProvider().Tracer(diagnosticTracer), nil),
		Logger:   logger,
		Tracer:   provider.Tracer(),
		ErrorLog: serverErrorLog(logger),
	}

	if cfg.Development.HotReload {
		hub, fw, err := startLiveReload(ctx, cfg.Server.AssetsDir, logger)
		if err != nil {
			return err
		}
		defer func() {
			_ = fw.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := hub.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, err, "live reload hub did not stop cleanly")
			}
		}()
		deps.Hub = hub
	}

	srv, err := server.New(deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serveErr := srv.Start(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(flushCtx); err != nil {
		logger.Warn(flushCtx, err, "failed to flush traces")
	}

	return serveErr
}

func newLogger(cfg config.LoggingConfig) (*logging.AppLogger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid log level", err)
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Format,
		Output:    os.Stdout,
		AddSource: cfg.AddSource,
	}), nil
}

// serverErrorLog sends net/http's internal errors, such as TLS handshake
// failures and recovered connection panics, through the structured logger.
func serverErrorLog(logger *logging.AppLogger) *log.Logger {
	return slog.NewLogLogger(logger.Slog().With("component", "http").Handler(), slog.LevelError)
}

// startLiveReload creates the websocket hub and starts watching assetsDir.
// The watcher stops when ctx is cancelled.
func startLiveReload(ctx context.Context, assetsDir string, logger logging.Logger) (*websocket.Hub, *watcher.FileWatcher, error) {
	hub := websocket.NewHub(logger, nil)

	fw, err := watcher.NewFileWatcher(watcher.DefaultDebounce, logger)
	if err != nil {
		_ = hub.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddHandler(reloadOnChange(hub, assetsDir))

	if err := fw.AddRecursive(assetsDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			_ = fw.Stop()
			_ = hub.Shutdown(ctx)
			return nil, nil, fmt.Errorf("failed to watch %s: %w", assetsDir, err)
		}
		logger.Warn(ctx, err, "assets directory does not exist, live reload has nothing to watch", "dir", assetsDir)
	}

	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		_ = hub.Shutdown(ctx)
		return nil, nil, err
	}

	return hub, fw, nil
}

// reloadOnChange broadcasts one reload message per debounced batch.
func reloadOnChange(hub *websocket.Hub, assetsDir string) watcher.ChangeHandler {
	return func(_ context.Context, events []watcher.ChangeEvent) error {
		if len(events) == 0 {
			return nil
		}

		target := events[0].Path
		if rel, err := filepath.Rel(assetsDir, target); err == nil {
			target = filepath.ToSlash(rel)
		}

		hub.Broadcast(websocket.UpdateMessage{
			Type:   websocket.MessageTypeReload,
			Target: target,
		})
		return nil
	}
}
