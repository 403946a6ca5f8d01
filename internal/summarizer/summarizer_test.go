package summarizer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/summarizer"
)

func TestSummarizeSendsPageOnce(t *testing.T) {
	calls := 0
	var gotSystem, gotUser string
	client := llm.Func(func(_ context.Context, system, user string) (string, error) {
		calls++
		gotSystem, gotUser = system, user
		return "A short summary.", nil
	})

	res := summarizer.New(client, "English", nil).Summarize(context.Background(), "page body", "Page title")
	require.True(t, res.OK())
	require.Equal(t, "A short summary.", res.Text)
	require.Equal(t, 1, calls)
	require.Contains(t, gotSystem, "pedagogical")
	require.Contains(t, gotUser, "Title: Page title")
	require.Contains(t, gotUser, "page body")
	require.Contains(t, gotUser, "in English")
	require.Contains(t, gotUser, "150 and 300 words")
}

func TestSummarizeDefaultLanguage(t *testing.T) {
	var gotUser string
	client := llm.Func(func(_ context.Context, _, user string) (string, error) {
		gotUser = user
		return "ok", nil
	})

	summarizer.New(client, " ", nil).Summarize(context.Background(), "c", "t")
	require.Contains(t, gotUser, "in "+summarizer.DefaultLanguage)
}

func TestSummarizeFailureYieldsPlaceholder(t *testing.T) {
	cause := errors.New("quota exceeded")
	client := llm.Func(func(context.Context, string, string) (string, error) {
		return "", cause
	})

	res := summarizer.New(client, "", nil).Summarize(context.Background(), "c", "t")
	require.False(t, res.OK())
	require.ErrorIs(t, res.Err, cause)
	require.Equal(t, "Error generating summary: quota exceeded", res.Text)
}
