package models

import (
	"time"

	"github.com/google/uuid"
)

// Source is a tracked web origin scraped by the ingestion job.
type Source struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	Active      bool       `json:"active"`
	LastChecked *time.Time `json:"last_checked"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SourceInput carries the user-editable fields of a Source.
type SourceInput struct {
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags"`
}

// NewSource builds an active Source with a fresh id.
func NewSource(in SourceInput, now time.Time) Source {
	return Source{
		ID:        uuid.NewString(),
		Name:      in.Name,
		URL:       in.URL,
		Category:  in.Category,
		Tags:      normalizeTags(in.Tags),
		Active:    true,
		CreatedAt: now.UTC(),
	}
}

// MaxStoredContentLen bounds the page text kept alongside a summary.
const MaxStoredContentLen = 5000

// SingleURLSourceName labels summaries produced outside of any tracked source.
const SingleURLSourceName = "Single URL"

// Summary is the model-generated condensation of one fetched page.
// SourceID is a soft reference and may point at a deleted Source.
type Summary struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id,omitempty"`
	SourceName string    `json:"source_name"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Summary    string    `json:"summary"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags"`
	IsNew      bool      `json:"is_new"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSummary assigns an id and creation time to s.
func NewSummary(s Summary, now time.Time) Summary {
	s.ID = uuid.NewString()
	s.Tags = normalizeTags(s.Tags)
	s.CreatedAt = now.UTC()
	return s
}

// SourceReference identifies one summary that contributed to an Article.
type SourceReference struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	SourceName string `json:"source_name"`
}

// Article is a long-form document compiled from several summaries.
type Article struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Theme            string            `json:"theme"`
	Content          string            `json:"content"`
	Sources          []string          `json:"sources"`
	SourceReferences []SourceReference `json:"source_references"`
	Tags             []string          `json:"tags"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewArticle assigns an id and creation time to a.
func NewArticle(a Article, now time.Time) Article {
	a.ID = uuid.NewString()
	a.Tags = normalizeTags(a.Tags)
	if a.Sources == nil {
		a.Sources = []string{}
	}
	if a.SourceReferences == nil {
		a.SourceReferences = []SourceReference{}
	}
	a.CreatedAt = now.UTC()
	return a
}

// Stats aggregates collection counters.
type Stats struct {
	TotalSources   int64 `json:"total_sources"`
	ActiveSources  int64 `json:"active_sources"`
	TotalSummaries int64 `json:"total_summaries"`
	NewSummaries   int64 `json:"new_summaries"`
	TotalArticles  int64 `json:"total_articles"`
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
