package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeafMist/veille/backend/internal/events"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/processing"
	"github.com/DeafMist/veille/backend/internal/store"
)

func (a *App) ListSummaries(ctx context.Context, filter store.SummaryFilter) ([]models.Summary, error) {
	return a.store.ListSummaries(ctx, filter)
}

func (a *App) GetSummary(ctx context.Context, id string) (models.Summary, error) {
	return a.store.GetSummary(ctx, id)
}

// MarkRead clears is_new. Calling it again is a no-op.
func (a *App) MarkRead(ctx context.Context, id string) error {
	return a.store.MarkSummaryRead(ctx, id)
}

func (a *App) DeleteSummary(ctx context.Context, id string) error {
	return a.store.DeleteSummary(ctx, id)
}

// ProcessURL summarizes one page outside of any tracked source.
// The summary is persisted only when save is true.
func (a *App) ProcessURL(ctx context.Context, rawURL string, save bool) (models.Summary, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := validateURL(rawURL); err != nil {
		return models.Summary{}, err
	}

	page := a.extractor.Extract(ctx, rawURL)
	if !page.Success {
		return models.Summary{}, badRequest("Failed to extract content: %s", page.Error)
	}

	res := a.summarizer.Summarize(ctx, page.Content, page.Title)

	summary := models.NewSummary(models.Summary{
		SourceName: models.SingleURLSourceName,
		URL:        rawURL,
		Title:      page.Title,
		Content:    processing.Truncate(page.Content, models.MaxStoredContentLen),
		Summary:    res.Text,
		IsNew:      false,
	}, a.now())

	if !save {
		return summary, nil
	}

	if err := a.store.InsertSummary(ctx, summary); err != nil {
		return models.Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	a.log.Info("single url summarized", slog.String("url", rawURL), slog.String("summary_id", summary.ID))
	a.publish(ctx, events.New(events.TypeSummaryCreated, summary.ID, summary))
	return summary, nil
}
