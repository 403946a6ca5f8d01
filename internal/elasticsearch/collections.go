package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/store"
)

var (
	keyword = map[string]any{"type": "keyword"}
	text    = map[string]any{"type": "text"}
	date    = map[string]any{"type": "date"}
	boolean = map[string]any{"type": "boolean"}
)

var mappings = map[string]map[string]any{
	collectionSources: {
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":           keyword,
				"name":         text,
				"url":          keyword,
				"category":     keyword,
				"tags":         keyword,
				"active":       boolean,
				"last_checked": date,
				"created_at":   date,
			},
		},
	},
	collectionSummaries: {
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":          keyword,
				"source_id":   keyword,
				"source_name": keyword,
				"url":         keyword,
				"title":       text,
				"content":     map[string]any{"type": "text", "index": false},
				"summary":     text,
				"category":    keyword,
				"tags":        keyword,
				"is_new":      boolean,
				"created_at":  date,
			},
		},
	},
	collectionArticles: {
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":                keyword,
				"title":             text,
				"theme":             text,
				"content":           text,
				"sources":           keyword,
				"source_references": map[string]any{"type": "object", "enabled": false},
				"tags":              keyword,
				"created_at":        date,
			},
		},
	},
}

// InsertSource stores a new source keyed by its application id.
func (c *Client) InsertSource(ctx context.Context, src models.Source) error {
	return c.put(ctx, collectionSources, src.ID, src)
}

// GetSource loads one source.
func (c *Client) GetSource(ctx context.Context, id string) (models.Source, error) {
	var src models.Source
	err := c.get(ctx, collectionSources, id, &src)
	return src, err
}

// ListSources returns sources newest first, optionally only the active ones.
func (c *Client) ListSources(ctx context.Context, activeOnly bool) ([]models.Source, error) {
	query := matchAll()
	if activeOnly {
		query = filtered([]map[string]any{term("active", true)})
	}
	return searchAll[models.Source](ctx, c, collectionSources, query)
}

// UpdateSource overwrites the user-editable fields and returns the stored document.
func (c *Client) UpdateSource(ctx context.Context, id string, in models.SourceInput) (models.Source, error) {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := map[string]any{
		"name":     in.Name,
		"url":      in.URL,
		"category": nullable(in.Category),
		"tags":     tags,
	}
	if err := c.patch(ctx, collectionSources, id, fields); err != nil {
		return models.Source{}, err
	}
	return c.GetSource(ctx, id)
}

// SetSourceActive flips the active flag to the given value.
func (c *Client) SetSourceActive(ctx context.Context, id string, active bool) error {
	return c.patch(ctx, collectionSources, id, map[string]any{"active": active})
}

// TouchSource records the last successful check time.
func (c *Client) TouchSource(ctx context.Context, id string, checkedAt time.Time) error {
	return c.patch(ctx, collectionSources, id, map[string]any{"last_checked": checkedAt.UTC()})
}

// DeleteSource removes a source. Summaries referencing it are left untouched.
func (c *Client) DeleteSource(ctx context.Context, id string) error {
	return c.remove(ctx, collectionSources, id)
}

// InsertSummary stores a new summary.
func (c *Client) InsertSummary(ctx context.Context, s models.Summary) error {
	return c.put(ctx, collectionSummaries, s.ID, s)
}

// GetSummary loads one summary.
func (c *Client) GetSummary(ctx context.Context, id string) (models.Summary, error) {
	var s models.Summary
	err := c.get(ctx, collectionSummaries, id, &s)
	return s, err
}

// GetSummaries fetches summaries by id in request order, skipping missing ids.
func (c *Client) GetSummaries(ctx context.Context, ids []string) ([]models.Summary, error) {
	if len(ids) == 0 {
		return []models.Summary{}, nil
	}

	payload, err := json.Marshal(map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal mget body: %w", err)
	}

	res, err := esapi.MgetRequest{
		Index: c.index(collectionSummaries),
		Body:  bytes.NewReader(payload),
	}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("mget failed: %s", strings.TrimSpace(string(data)))
	}

	var parsed struct {
		Docs []struct {
			Found  bool           `json:"found"`
			Source models.Summary `json:"_source"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode mget response: %w", err)
	}

	out := make([]models.Summary, 0, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		if doc.Found {
			out = append(out, doc.Source)
		}
	}
	return out, nil
}

// ListSummaries returns summaries matching filter, newest first.
func (c *Client) ListSummaries(ctx context.Context, filter store.SummaryFilter) ([]models.Summary, error) {
	filters := make([]map[string]any, 0, 3)
	if filter.Category != "" {
		filters = append(filters, term("category", filter.Category))
	}
	if filter.Tag != "" {
		filters = append(filters, term("tags", filter.Tag))
	}
	if filter.IsNew != nil {
		filters = append(filters, term("is_new", *filter.IsNew))
	}
	return searchAll[models.Summary](ctx, c, collectionSummaries, filtered(filters))
}

// MarkSummaryRead clears is_new. Repeating it is a no-op.
func (c *Client) MarkSummaryRead(ctx context.Context, id string) error {
	return c.patch(ctx, collectionSummaries, id, map[string]any{"is_new": false})
}

// DeleteSummary removes a summary.
func (c *Client) DeleteSummary(ctx context.Context, id string) error {
	return c.remove(ctx, collectionSummaries, id)
}

// InsertArticle stores a compiled article.
func (c *Client) InsertArticle(ctx context.Context, a models.Article) error {
	return c.put(ctx, collectionArticles, a.ID, a)
}

// GetArticle loads one article.
func (c *Client) GetArticle(ctx context.Context, id string) (models.Article, error) {
	var a models.Article
	err := c.get(ctx, collectionArticles, id, &a)
	return a, err
}

// ListArticles returns every article, newest first.
func (c *Client) ListArticles(ctx context.Context) ([]models.Article, error) {
	return searchAll[models.Article](ctx, c, collectionArticles, matchAll())
}

// DeleteArticle removes an article.
func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.remove(ctx, collectionArticles, id)
}

// Tags lists the distinct tags carried by summaries.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	return c.terms(ctx, "tags", collectionSummaries)
}

// Categories lists the distinct categories of sources and summaries.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	values, err := c.terms(ctx, "category", collectionSources, collectionSummaries)
	if err != nil {
		return nil, err
	}
	slices.Sort(values)
	return slices.Compact(values), nil
}

// Stats counts documents in every collection.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var (
		st  models.Stats
		err error
	)
	counters := []struct {
		dst        *int64
		collection string
		query      map[string]any
	}{
		{&st.TotalSources, collectionSources, matchAll()},
		{&st.ActiveSources, collectionSources, term("active", true)},
		{&st.TotalSummaries, collectionSummaries, matchAll()},
		{&st.NewSummaries, collectionSummaries, term("is_new", true)},
		{&st.TotalArticles, collectionArticles, matchAll()},
	}
	for _, ctr := range counters {
		if *ctr.dst, err = c.count(ctx, ctr.collection, ctr.query); err != nil {
			return models.Stats{}, fmt.Errorf("count %s: %w", ctr.collection, err)
		}
	}
	return st, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
