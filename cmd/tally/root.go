package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hyperengineering/tally/internal/api"
	"github.com/hyperengineering/tally/internal/config"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "tally",
	Short:        "Tally - habit tracking and analytics service",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(reportCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 2. Initialize logger
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("configuration loaded")
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// 3. Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)
	if cfg.Demo.Email != "" {
		slog.Info("demo mode enabled", "email", cfg.Demo.Email)
	}

	// 4. Initialize HTTP router
	handler := api.NewHandler(db, db, Version, cfg.IsDemo)
	router := api.NewRouter(handler)
	slog.Info("router initialized")

	// 5. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 6. Start HTTP server
	var wg sync.WaitGroup
	startWorker(ctx, &wg, "http-server", func(context.Context) {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		// Any other error indicates an actual server failure that should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	// 7. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 8. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 8a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 8b. Wait for the server goroutine to return
	wg.Wait()

	// 8c. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from config. Format "text" selects
// the human-readable handler; anything else is JSON.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
