// Package extract fetches a web page and reduces it to a title and plain text.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/processing"
)

const (
	DefaultTimeout = 30 * time.Second
	MaxContentLen  = 15000
	NoTitle        = "No title found"
	// MaxBodyBytes bounds how much of a response is read before parsing.
	MaxBodyBytes   = 5 << 20

	userAgent = "Mozilla/5.0 (compatible; veille/1.0; +https://github.com/DeafMist/veille)"
)

// Result is the outcome of one extraction. Error is set only when Success is false.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func failed(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Extractor downloads pages over HTTP.
type Extractor struct {
	client *http.Client
	log    *slog.Logger
}

// New builds an Extractor. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration, log *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Extractor{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Extract fetches url and returns its title and flattened text.
// Failures are reported through the Result and never as a panic.
func (e *Extractor) Extract(ctx context.Context, url string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extract panic", slog.String("url", url), slog.Any("panic", r))
			res = failed(fmt.Sprint(r))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Warn("fetch failed", slog.String("url", url), slog.Any("err", err))
		return failed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failed(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, MaxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return failed(fmt.Sprintf("decode charset: %v", err))
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return failed(fmt.Sprintf("parse html: %v", err))
	}

	doc.Find("script, style").Remove()

	content := processing.Truncate(processing.FlattenText(doc.Text()), MaxContentLen)
	e.log.Debug("page extracted", slog.String("url", url), slog.Int("chars", len([]rune(content))))

	return Result{
		Title:   pageTitle(doc),
		Content: content,
		Success: true,
	}
}

func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return NoTitle
}
