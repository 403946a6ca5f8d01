package main

import (
	"context"
	"flag"
	"log/slog"
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
	once := flag.Bool("once", false, "run the source check immediately and exit")
	flag.Parse()

	log := logger.New("ingest")
	if err := config.LoadDotEnv(); err != nil {
		log.Error("load .env", slog.Any("err", err))
		os.Exit(1)
	}

	cfg, err := config.LoadIngest()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.ConnectTimeout)
	application, err := app.Bootstrap(connectCtx, cfg.Common, log)
	cancelConnect()
	if err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown signal received during startup")
			return
		}
		log.Error("bootstrap", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Close(closeCtx); err != nil {
			log.Error("app shutdown", slog.Any("err", err))
		}
	}()

	if *once {
		stats := application.RunIngest(ctx)
		log.Info("one-shot run finished",
			slog.Int("summarized", stats.Summarized),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed),
		)
		return
	}

	sched := scheduler.New(cfg.IngestLocation, log)
	if err := application.ScheduleIngest(sched, cfg.IngestAt); err != nil {
		log.Error("schedule ingestion", slog.Any("err", err))
		os.Exit(1)
	}
	sched.Start()

	next, _ := sched.Next(ingest.JobID)
	log.Info("ingest runner waiting",
		slog.String("job", ingest.JobID),
		slog.String("at", cfg.IngestAt.String()),
		slog.Time("next_run", next),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		log.Error("scheduler shutdown", slog.Any("err", err))
	}
}
