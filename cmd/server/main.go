/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance compliance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the JSON logger
  3. Load the policy document, if configured
  4. Initialize SQLite store and register
  5. Start the inbox watcher, if configured
  6. Configure HTTP router and start the server

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (APP_PORT, default: 8080)
  -db      SQLite database path (DB_PATH, default: ./data/attendance.db)
           Use ":memory:" for in-memory database
  -policy  YAML or JSON policy document (POLICY_FILE)
  -inbox   Directory watched for CSV / QR drops (INBOX_DIR)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the inbox watcher
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/inbox"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "attendance server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	policyFile := flag.String("policy", cfg.Policy.File, "YAML or JSON policy document")
	inboxDir := flag.String("inbox", cfg.Inbox.Dir, "directory watched for CSV / QR files")
	flag.Parse()

	cfg.App.Port = *port
	cfg.Database.Path = *dbPath
	cfg.Policy.File = *policyFile
	cfg.Inbox.Dir = *inboxDir
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Policy
	policy := attendance.DefaultPolicy()
	if cfg.Policy.File != "" {
		policy, err = factory.NewPolicyFactory().LoadFile(cfg.Policy.File)
		if err != nil {
			return fmt.Errorf("load policy: %w", err)
		}
		logger.Info("policy loaded", slog.String("file", cfg.Policy.File))
	}

	// Initialize store
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	register := attendance.NewRegister(store, attendance.NewEngine(policy), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A policy file may have changed since the records were last evaluated.
	if _, err := register.Recompute(ctx); err != nil {
		return fmt.Errorf("initial recompute: %w", err)
	}

	// Inbox watcher
	watcherDone := make(chan struct{})
	if cfg.Inbox.Dir != "" {
		if err := os.MkdirAll(cfg.Inbox.Dir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
		watcher := inbox.NewWatcher(cfg.Inbox.Dir, register, logger)
		go func() {
			defer close(watcherDone)
			if err := watcher.Run(ctx); err != nil {
				logger.Error("inbox watcher failed", slog.Any("error", err))
			}
		}()
	} else {
		close(watcherDone)
	}

	// Create router
	handler := api.NewHandler(register, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr()), slog.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")
	<-watcherDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger builds the JSON logger. Attribute names follow the ECS schema so
// application lines and httplog request lines share one shape.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	logFormat := httplog.SchemaECS.Concise(cfg.IsDevelopment())
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("env", cfg.App.Env),
	), nil
}
