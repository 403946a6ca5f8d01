// Package summarizer condenses one extracted page with a language model.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/logger"
)

const DefaultLanguage = "French"

const systemPrompt = "You are an artificial intelligence expert who writes clear, concise and instructive summaries of technical articles. Your summaries are informative and pedagogical."

const userTemplate = `Here is an article about artificial intelligence:

Title: %s

Content:
%s

Write a detailed, pedagogical summary of this article in %s. The summary must:
1. Explain the key points clearly
2. Be informative and instructive
3. Be between 150 and 300 words long
4. Highlight what is new or important

Summary:`

// Result carries the summary text. On failure Text holds a readable placeholder and Err the cause.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the model produced the summary.
func (r Result) OK() bool { return r.Err == nil }

// Summarizer wraps a model client with the summary persona.
type Summarizer struct {
	llm      llm.Client
	language string
	log      *slog.Logger
}

// New builds a Summarizer writing in language (DefaultLanguage when empty).
func New(client llm.Client, language string, log *slog.Logger) *Summarizer {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Summarizer{llm: client, language: language, log: log}
}

// Summarize makes exactly one model call for content.
func (s *Summarizer) Summarize(ctx context.Context, content, title string) Result {
	text, err := s.llm.Complete(ctx, systemPrompt, fmt.Sprintf(userTemplate, title, content, s.language))
	if err != nil {
		s.log.Error("summary generation failed", slog.String("title", title), slog.Any("err", err))
		return Result{Text: Placeholder(err), Err: err}
	}
	return Result{Text: text}
}

// Placeholder is the text stored in place of a summary the model could not produce.
func Placeholder(err error) string {
	return fmt.Sprintf("Error generating summary: %v", err)
}
