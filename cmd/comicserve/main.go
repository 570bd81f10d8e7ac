package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/comicserve/comicserve/internal/adapter/driven/archive"
	sqliteadapter "github.com/comicserve/comicserve/internal/adapter/driven/sqlite"
	httphandler "github.com/comicserve/comicserve/internal/adapter/driving/http"
	"github.com/comicserve/comicserve/internal/adapter/driving/opds"
	"github.com/comicserve/comicserve/internal/application"
	"github.com/comicserve/comicserve/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing library path).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"library_path", cfg.LibraryPath,
		"db_path", cfg.DBPath,
		"listen_addr", cfg.ListenAddr,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters and services.
	issueStore := sqliteadapter.NewIssueRepo(db)
	pageStore := sqliteadapter.NewPageRepo(db)
	userStore := sqliteadapter.NewUserRepo(db)
	archiveReader := archive.NewReader()

	scanSvc := application.NewScanService(issueStore, archiveReader)
	librarySvc := application.NewLibraryService(issueStore, pageStore, userStore, archiveReader)

	// 6. Kick off the startup scan pass concurrently with request service.
	go func() {
		if err := scanSvc.Run(ctx, cfg.LibraryPath); err != nil {
			slog.Error("library scan failed", "error", err)
		}
	}()

	// 6b. Optional periodic rescans. Scheduling is policy layered on top
	// of the scanner, so it lives here rather than in the service.
	if cfg.RescanCron != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.RescanCron, func() {
			if err := scanSvc.Run(ctx, cfg.LibraryPath); err != nil {
				slog.Error("scheduled library scan failed", "error", err)
			}
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("rescan schedule active", "cron", cfg.RescanCron)
	}

	// 7. Register routes behind auth, logging, and recovery middleware.
	feeds := opds.NewBuilder(cfg.TagAuthority)
	handler := httphandler.NewHandler(issueStore, librarySvc, feeds, slog.Default())
	mux := httphandler.NewServeMux(handler, userStore, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("comicserve started",
		"library_path", cfg.LibraryPath,
		"listen_addr", cfg.ListenAddr,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with a 10s drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
