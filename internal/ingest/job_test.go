package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/veille/backend/internal/events"
	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/store"
	"github.com/DeafMist/veille/backend/internal/store/memory"
	"github.com/DeafMist/veille/backend/internal/summarizer"
)

type pages map[string]extract.Result

func (p pages) Extract(_ context.Context, url string) extract.Result {
	if res, ok := p[url]; ok {
		return res
	}
	return extract.Result{Success: false, Error: "HTTP 500"}
}

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func fixedSummarizer(text string) *summarizer.Summarizer {
	return summarizer.New(llm.Func(func(context.Context, string, string) (string, error) {
		return text, nil
	}), "", nil)
}

func seed(t *testing.T, st *memory.Store, in models.SourceInput, active bool) models.Source {
	t.Helper()
	src := models.NewSource(in, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	src.Active = active
	require.NoError(t, st.InsertSource(context.Background(), src))
	return src
}

func TestRunTwiceCreatesTwoSummariesPerSource(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	src := seed(t, st, models.SourceInput{Name: "Blog", URL: "https://blog.example", Category: "ai", Tags: []string{"llm"}}, true)
	seed(t, st, models.SourceInput{Name: "Paused", URL: "https://paused.example"}, false)

	ex := pages{
		"https://blog.example":   {Title: "Post", Content: strings.Repeat("a", 6000), Success: true},
		"https://paused.example": {Title: "Nope", Content: "x", Success: true},
	}
	pub := &recordingPublisher{}
	job := New(st, ex, fixedSummarizer("summary text"), pub, nil)

	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return first }
	stats := job.Run(ctx)
	require.Equal(t, 1, stats.Sources)
	require.Equal(t, 1, stats.Summarized)

	second := first.Add(24 * time.Hour)
	job.now = func() time.Time { return second }
	job.Run(ctx)

	summaries, err := st.ListSummaries(ctx, store.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		require.Equal(t, src.ID, s.SourceID)
		require.Equal(t, "Blog", s.SourceName)
		require.Equal(t, "https://blog.example", s.URL)
		require.Equal(t, "Post", s.Title)
		require.Equal(t, "summary text", s.Summary)
		require.Equal(t, "ai", s.Category)
		require.Equal(t, []string{"llm"}, s.Tags)
		require.True(t, s.IsNew)
		require.Len(t, s.Content, models.MaxStoredContentLen)
	}
	require.NotEqual(t, summaries[0].ID, summaries[1].ID)

	got, err := st.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastChecked)
	require.True(t, second.Equal(*got.LastChecked))

	var types []string
	for _, ev := range pub.events {
		types = append(types, ev.Type)
	}
	require.Equal(t, []string{
		events.TypeSummaryCreated, events.TypeIngestCompleted,
		events.TypeSummaryCreated, events.TypeIngestCompleted,
	}, types)
}

func TestRunSkipsFailedExtraction(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	broken := seed(t, st, models.SourceInput{Name: "Broken", URL: "https://broken.example"}, true)
	seed(t, st, models.SourceInput{Name: "Fine", URL: "https://fine.example"}, true)

	job := New(st, pages{"https://fine.example": {Title: "Fine", Content: "ok", Success: true}}, fixedSummarizer("s"), nil, nil)
	stats := job.Run(ctx)
	require.Equal(t, 2, stats.Sources)
	require.Equal(t, 1, stats.Summarized)
	require.Equal(t, 1, stats.Skipped)

	got, err := st.GetSource(ctx, broken.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastChecked)

	summaries, err := st.ListSummaries(ctx, store.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Fine", summaries[0].SourceName)
}

func TestRunStoresPlaceholderWhenModelFails(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st, models.SourceInput{Name: "Blog", URL: "https://blog.example"}, true)

	sum := summarizer.New(llm.Func(func(context.Context, string, string) (string, error) {
		return "", errors.New("rate limited")
	}), "", nil)

	stats := New(st, pages{"https://blog.example": {Title: "T", Content: "c", Success: true}}, sum, nil, nil).Run(ctx)
	require.Equal(t, 1, stats.Summarized)
	require.Equal(t, 1, stats.SummaryErrors)

	summaries, err := st.ListSummaries(ctx, store.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Error generating summary: rate limited", summaries[0].Summary)
}

type failingStore struct {
	*memory.Store
}

func (failingStore) InsertSummary(context.Context, models.Summary) error {
	return errors.New("disk full")
}

func TestRunContinuesAfterPersistenceError(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	a := seed(t, mem, models.SourceInput{Name: "A", URL: "https://a.example"}, true)
	seed(t, mem, models.SourceInput{Name: "B", URL: "https://b.example"}, true)

	ex := pages{
		"https://a.example": {Title: "A", Content: "a", Success: true},
		"https://b.example": {Title: "B", Content: "b", Success: true},
	}
	stats := New(failingStore{mem}, ex, fixedSummarizer("s"), nil, nil).Run(ctx)
	require.Equal(t, 2, stats.Sources)
	require.Equal(t, 2, stats.Failed)
	require.Zero(t, stats.Summarized)

	got, err := mem.GetSource(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.LastChecked)
}
