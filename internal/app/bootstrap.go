package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DeafMist/veille/backend/internal/archive"
	"github.com/DeafMist/veille/backend/internal/compiler"
	"github.com/DeafMist/veille/backend/internal/config"
	"github.com/DeafMist/veille/backend/internal/elasticsearch"
	"github.com/DeafMist/veille/backend/internal/events"
	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/ingest"
	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/scheduler"
	"github.com/DeafMist/veille/backend/internal/store"
	"github.com/DeafMist/veille/backend/internal/store/memory"
	"github.com/DeafMist/veille/backend/internal/summarizer"
)

// Bootstrap wires every dependency described by cfg.
func Bootstrap(ctx context.Context, cfg config.Common, log *slog.Logger) (*App, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	model, err := llm.New(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	arch, err := archive.New(ctx, archive.Config{
		Bucket:       cfg.Archive.Bucket,
		Prefix:       cfg.Archive.Prefix,
		Region:       cfg.Archive.Region,
		UsePathStyle: cfg.Archive.PathStyle,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init archive: %w", err)
	}

	pub := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	ex := extract.New(cfg.ExtractTimeout, log)
	sum := summarizer.New(model, cfg.SummaryLanguage, log)

	return New(Deps{
		Store:      st,
		Extractor:  ex,
		Summarizer: sum,
		Compiler:   compiler.New(ex, model, cfg.SummaryLanguage, log),
		Ingester:   ingest.New(st, ex, sum, pub, log),
		Events:     pub,
		Archive:    arch,
		Logger:     log,
	}), nil
}

func openStore(ctx context.Context, cfg config.Common, log *slog.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil
	}

	es, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndexPrefix, log)
	if err != nil {
		return nil, fmt.Errorf("init elasticsearch: %w", err)
	}
	return es, nil
}

// ScheduleIngest registers the daily ingestion trigger on s.
func (a *App) ScheduleIngest(s *scheduler.Scheduler, at scheduler.TimeOfDay) error {
	return s.RegisterDaily(ingest.JobID, at, func(ctx context.Context) {
		a.RunIngest(ctx)
	})
}
