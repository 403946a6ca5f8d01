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

// CompileRequest names the summaries to merge into one article.
type CompileRequest struct {
	Title      string   `json:"title"`
	Theme      string   `json:"theme"`
	SummaryIDs []string `json:"summary_ids"`
}

// CompileArticle builds and stores an article from the requested summaries.
// Unknown ids are skipped; if none resolve the result is store.ErrNotFound and nothing is written.
func (a *App) CompileArticle(ctx context.Context, req CompileRequest) (models.Article, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Theme = strings.TrimSpace(req.Theme)
	if req.Title == "" {
		return models.Article{}, badRequest("title is required")
	}
	if req.Theme == "" {
		return models.Article{}, badRequest("theme is required")
	}

	summaries, err := a.store.GetSummaries(ctx, processing.UniqueIDs(req.SummaryIDs))
	if err != nil {
		return models.Article{}, fmt.Errorf("load summaries: %w", err)
	}
	if len(summaries) == 0 {
		return models.Article{}, store.ErrNotFound
	}

	res := a.compiler.Compile(ctx, req.Theme, summaries)

	tagGroups := make([][]string, 0, len(summaries))
	refs := make([]models.SourceReference, 0, len(summaries))
	urls := make([]string, 0, len(summaries))
	for _, s := range summaries {
		tagGroups = append(tagGroups, s.Tags)
		refs = append(refs, models.SourceReference{URL: s.URL, Title: s.Title, SourceName: s.SourceName})
		urls = append(urls, s.URL)
	}

	article := models.NewArticle(models.Article{
		Title:            req.Title,
		Theme:            req.Theme,
		Content:          res.Text,
		Sources:          urls,
		SourceReferences: refs,
		Tags:             processing.MergeTags(tagGroups...),
	}, a.now())

	if err := a.store.InsertArticle(ctx, article); err != nil {
		return models.Article{}, fmt.Errorf("insert article: %w", err)
	}
	a.log.Info("article compiled",
		slog.String("article_id", article.ID),
		slog.Int("sources", len(refs)),
		slog.Bool("model_ok", res.OK()),
	)

	if err := a.archive.Put(ctx, article); err != nil {
		a.log.Warn("archive article", slog.String("article_id", article.ID), slog.Any("err", err))
	}
	a.publish(ctx, events.New(events.TypeArticleCompiled, article.ID, map[string]any{
		"title":   article.Title,
		"theme":   article.Theme,
		"sources": article.Sources,
		"tags":    article.Tags,
	}))
	return article, nil
}

func (a *App) ListArticles(ctx context.Context) ([]models.Article, error) {
	return a.store.ListArticles(ctx)
}

func (a *App) GetArticle(ctx context.Context, id string) (models.Article, error) {
	return a.store.GetArticle(ctx, id)
}

func (a *App) DeleteArticle(ctx context.Context, id string) error {
	if err := a.store.DeleteArticle(ctx, id); err != nil {
		return err
	}
	if err := a.archive.Remove(ctx, id); err != nil {
		a.log.Warn("remove archived article", slog.String("article_id", id), slog.Any("err", err))
	}
	return nil
}
