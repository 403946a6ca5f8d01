// Package compiler turns several stored summaries into one long-form article.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/llm"
	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/processing"
)

const (
	MaxSourceContentLen = 8000
	ContentUnavailable  = "Content unavailable"
	DefaultLanguage     = "French"
)

const systemPrompt = "You are an expert writer of SEO articles about artificial intelligence. You produce in-depth, well structured content optimized for search engines."

const userTemplate = `Write an in-depth, detailed SEO article on the theme "%s" in %s, using the sources below.

FULL SOURCES:
%s

STRICT INSTRUCTIONS:
1. **Markdown format**: use Markdown syntax for all formatting
2. **SEO structure**:
   - One H1 title (# Main title)
   - Several H2 (## Section) and H3 (### Subsection) headings
   - An engaging introduction that uses the main keyword
   - A conclusion with a call to action
3. **Length**: AT LEAST 1500 words
4. **Depth**:
   - Detailed analysis of each source
   - Concrete examples and use cases
   - Technical data and figures taken from the sources
   - Pedagogical explanations
   - Outlook and implications
5. **SEO**:
   - Natural keyword usage
   - Paragraphs of 3 to 5 sentences
   - Bullet lists for readability
6. **Tone**: professional, informative, pedagogical

SUGGESTED STRUCTURE:
# [Catchy main title]

## Introduction
[150-200 words introducing the subject and its context]

## Context and Stakes
[300-400 words on the general context]

## Detailed Analysis
[500-600 words analysing the sources in depth]

## Use Cases and Applications
[300-400 words on practical applications]

## Outlook and Future
[200-300 words on future implications]

## Conclusion
[100-150 words of synthesis]

Now write the complete article:`

// Extractor re-fetches the full text behind a summary.
type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

// Result carries the article body. On failure Text holds a readable placeholder and Err the cause.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the model produced the article.
func (r Result) OK() bool { return r.Err == nil }

// Compiler assembles source material and asks the model for the article.
type Compiler struct {
	extractor Extractor
	llm       llm.Client
	language  string
	log       *slog.Logger
}

func New(extractor Extractor, client llm.Client, language string, log *slog.Logger) *Compiler {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Compiler{extractor: extractor, llm: client, language: language, log: log}
}

// Compile re-extracts every summary's URL in order, then makes one model call.
func (c *Compiler) Compile(ctx context.Context, theme string, summaries []models.Summary) Result {
	sections := make([]string, 0, len(summaries))
	for i, s := range summaries {
		c.log.Info("extracting full content", slog.String("url", s.URL))
		sections = append(sections, c.section(ctx, i+1, s))
	}

	prompt := fmt.Sprintf(userTemplate, theme, c.language, strings.Join(sections, "\n\n"))

	text, err := c.llm.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		c.log.Error("article compilation failed", slog.String("theme", theme), slog.Any("err", err))
		return Result{Text: Placeholder(err), Err: err}
	}
	return Result{Text: text}
}

func (c *Compiler) section(ctx context.Context, n int, s models.Summary) string {
	content := ContentUnavailable
	if res := c.extractor.Extract(ctx, s.URL); res.Success {
		content = processing.Truncate(res.Content, MaxSourceContentLen)
	} else {
		c.log.Warn("source content unavailable", slog.String("url", s.URL), slog.String("reason", res.Error))
	}

	return fmt.Sprintf("Source %d: %s\nURL: %s\nTitle: %s\nSummary: %s\nFull extracted content: %s",
		n, s.SourceName, s.URL, s.Title, s.Summary, content)
}

// Placeholder is the text stored in place of an article the model could not produce.
func Placeholder(err error) string {
	return fmt.Sprintf("Error compiling article: %v", err)
}
