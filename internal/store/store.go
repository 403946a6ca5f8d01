// Package store defines the persistence contract shared by the storage backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DeafMist/veille/backend/internal/models"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("not found")

// SummaryFilter narrows ListSummaries. Zero values mean "any".
type SummaryFilter struct {
	Category string
	Tag      string
	IsNew    *bool
}

// Store is implemented by every persistence backend.
type Store interface {
	InsertSource(ctx context.Context, src models.Source) error
	GetSource(ctx context.Context, id string) (models.Source, error)
	ListSources(ctx context.Context, activeOnly bool) ([]models.Source, error)
	UpdateSource(ctx context.Context, id string, in models.SourceInput) (models.Source, error)
	SetSourceActive(ctx context.Context, id string, active bool) error
	TouchSource(ctx context.Context, id string, checkedAt time.Time) error
	DeleteSource(ctx context.Context, id string) error

	InsertSummary(ctx context.Context, s models.Summary) error
	GetSummary(ctx context.Context, id string) (models.Summary, error)
	GetSummaries(ctx context.Context, ids []string) ([]models.Summary, error)
	ListSummaries(ctx context.Context, filter SummaryFilter) ([]models.Summary, error)
	MarkSummaryRead(ctx context.Context, id string) error
	DeleteSummary(ctx context.Context, id string) error

	InsertArticle(ctx context.Context, a models.Article) error
	GetArticle(ctx context.Context, id string) (models.Article, error)
	ListArticles(ctx context.Context) ([]models.Article, error)
	DeleteArticle(ctx context.Context, id string) error

	Tags(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (models.Stats, error)

	Health(ctx context.Context) error
}
