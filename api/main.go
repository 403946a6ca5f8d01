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

	"github.com/DeafMist/veille/backend/internal/app"
	"github.com/DeafMist/veille/backend/internal/config"
	"github.com/DeafMist/veille/backend/internal/ingest"
	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/scheduler"
)

func main() {
	log := logger.New("api")
	if err := config.LoadDotEnv(); err != nil {
		log.Error("load .env", slog.Any("err", err))
		os.Exit(1)
	}

	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.Bootstrap(ctx, cfg.Common, log)
	if err != nil {
		log.Error("bootstrap", slog.Any("err", err))
		os.Exit(1)
	}

	sched := scheduler.New(cfg.IngestLocation, log)
	if err := application.ScheduleIngest(sched, cfg.IngestAt); err != nil {
		log.Error("schedule ingestion", slog.Any("err", err))
		os.Exit(1)
	}
	sched.Start()
	if next, ok := sched.Next(ingest.JobID); ok {
		log.Info("scheduler started", slog.String("job", ingest.JobID), slog.Time("next_run", next))
	}

	srv := &server{log: log, app: application}
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           newRouter(srv, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// compile and process-url clear it per request
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("scheduler shutdown", slog.Any("err", err))
	}
	if err := application.Close(shutdownCtx); err != nil {
		log.Error("app shutdown", slog.Any("err", err))
	}
}
