// Package ingest runs the scrape, summarize and persist pass over active sources.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/DeafMist/veille/backend/internal/events"
	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/processing"
	"github.com/DeafMist/veille/backend/internal/summarizer"
)

// JobID names the daily trigger on the scheduler.
const JobID = "daily_source_check"

type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

type Summarizer interface {
	Summarize(ctx context.Context, content, title string) summarizer.Result
}

// Store is the subset of persistence the job touches.
type Store interface {
	ListSources(ctx context.Context, activeOnly bool) ([]models.Source, error)
	InsertSummary(ctx context.Context, s models.Summary) error
	TouchSource(ctx context.Context, id string, checkedAt time.Time) error
}

// Stats describes one run.
type Stats struct {
	Sources       int       `json:"sources"`
	Summarized    int       `json:"summarized"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	SummaryErrors int       `json:"summary_errors"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Job processes every active source sequentially. Reruns are not deduplicated.
type Job struct {
	store      Store
	extractor  Extractor
	summarizer Summarizer
	events     events.Publisher
	log        *slog.Logger
	now        func() time.Time
}

func New(st Store, ex Extractor, sum Summarizer, pub events.Publisher, log *slog.Logger) *Job {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Job{
		store:      st,
		extractor:  ex,
		summarizer: sum,
		events:     pub,
		log:        log,
		now:        time.Now,
	}
}

// Run performs one pass. Per-source failures are logged and never abort the batch.
func (j *Job) Run(ctx context.Context) Stats {
	stats := Stats{StartedAt: j.now().UTC()}
	j.log.Info("starting scheduled source check")

	sources, err := j.store.ListSources(ctx, true)
	if err != nil {
		j.log.Error("list active sources", slog.Any("err", err))
		stats.FinishedAt = j.now().UTC()
		return stats
	}
	stats.Sources = len(sources)

	for _, src := range sources {
		if ctx.Err() != nil {
			j.log.Warn("source check interrupted", slog.Any("err", ctx.Err()))
			break
		}
		j.processSource(ctx, src, &stats)
	}

	stats.FinishedAt = j.now().UTC()
	j.log.Info("scheduled source check completed",
		slog.Int("sources", stats.Sources),
		slog.Int("summarized", stats.Summarized),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", stats.FinishedAt.Sub(stats.StartedAt)),
	)

	if err := j.events.Publish(ctx, events.New(events.TypeIngestCompleted, "", stats)); err != nil {
		j.log.Warn("publish ingest event", slog.Any("err", err))
	}
	return stats
}

func (j *Job) processSource(ctx context.Context, src models.Source, stats *Stats) {
	log := j.log.With(slog.String("source", src.Name), slog.String("url", src.URL))
	log.Info("checking source")

	page := j.extractor.Extract(ctx, src.URL)
	if !page.Success {
		log.Warn("extraction failed, skipping source", slog.String("reason", page.Error))
		stats.Skipped++
		return
	}

	res := j.summarizer.Summarize(ctx, page.Content, page.Title)
	if !res.OK() {
		stats.SummaryErrors++
	}

	now := j.now()
	summary := models.NewSummary(models.Summary{
		SourceID:   src.ID,
		SourceName: src.Name,
		URL:        src.URL,
		Title:      page.Title,
		Content:    processing.Truncate(page.Content, models.MaxStoredContentLen),
		Summary:    res.Text,
		Category:   src.Category,
		Tags:       append([]string(nil), src.Tags...),
		IsNew:      true,
	}, now)

	if err := j.store.InsertSummary(ctx, summary); err != nil {
		log.Error("insert summary", slog.Any("err", err))
		stats.Failed++
		return
	}
	if err := j.store.TouchSource(ctx, src.ID, now); err != nil {
		log.Error("update last_checked", slog.Any("err", err))
	}
	stats.Summarized++

	if err := j.events.Publish(ctx, events.New(events.TypeSummaryCreated, summary.ID, summary)); err != nil {
		log.Warn("publish summary event", slog.Any("err", err))
	}
	log.Info("created summary", slog.String("summary_id", summary.ID))
}
