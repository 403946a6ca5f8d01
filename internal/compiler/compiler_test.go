package compiler_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/veille/backend/internal/compiler"
	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/models"
)

type stubExtractor struct {
	pages map[string]extract.Result
	seen  []string
}

func (s *stubExtractor) Extract(_ context.Context, url string) extract.Result {
	s.seen = append(s.seen, url)
	if res, ok := s.pages[url]; ok {
		return res
	}
	return extract.Result{Success: false, Error: "HTTP 404"}
}

func TestCompileBuildsOneSectionPerSummary(t *testing.T) {
	ex := &stubExtractor{pages: map[string]extract.Result{
		"https://a.example": {Title: "A", Content: strings.Repeat("x", compiler.MaxSourceContentLen+100), Success: true},
	}}

	var prompt string
	calls := 0
	client := llm.Func(func(_ context.Context, _, user string) (string, error) {
		calls++
		prompt = user
		return "# Article\n\n\n\nBody", nil
	})

	summaries := []models.Summary{
		{SourceName: "Blog A", URL: "https://a.example", Title: "First", Summary: "sum one"},
		{SourceName: "Blog B", URL: "https://b.example", Title: "Second", Summary: "sum two"},
	}

	res := compiler.New(ex, client, "English", nil).Compile(context.Background(), "Agents", summaries)
	require.True(t, res.OK())
	require.Equal(t, "# Article\n\n\n\nBody", res.Text)
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, ex.seen)

	require.Contains(t, prompt, `theme "Agents" in English`)
	require.Contains(t, prompt, "Source 1: Blog A\nURL: https://a.example\nTitle: First\nSummary: sum one")
	require.Contains(t, prompt, "Source 2: Blog B")
	require.Contains(t, prompt, "Full extracted content: "+strings.Repeat("x", compiler.MaxSourceContentLen)+"\n\nSource 2")
	require.Contains(t, prompt, "Full extracted content: "+compiler.ContentUnavailable)
	require.Less(t, strings.Index(prompt, "Source 1:"), strings.Index(prompt, "Source 2:"))
}

func TestCompileFailureYieldsPlaceholder(t *testing.T) {
	cause := errors.New("timeout")
	client := llm.Func(func(context.Context, string, string) (string, error) {
		return "", cause
	})

	res := compiler.New(&stubExtractor{}, client, "", nil).Compile(context.Background(), "t", []models.Summary{{URL: "https://x"}})
	require.False(t, res.OK())
	require.ErrorIs(t, res.Err, cause)
	require.Equal(t, "Error compiling article: timeout", res.Text)
}
