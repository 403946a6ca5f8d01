// Package app holds the long-lived resources and the operations exposed over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/DeafMist/veille/backend/internal/archive"
	"github.com/DeafMist/veille/backend/internal/compiler"
	"github.com/DeafMist/veille/backend/internal/events"
	"github.com/DeafMist/veille/backend/internal/extract"
	"github.com/DeafMist/veille/backend/internal/ingest"
	"github.com/DeafMist/veille/backend/internal/logger"
	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/store"
	"github.com/DeafMist/veille/backend/internal/summarizer"
)

// ErrBadRequest marks errors caused by invalid client input.
var ErrBadRequest = errors.New("bad request")

type requestError struct {
	msg string
}

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == ErrBadRequest }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type Extractor interface {
	Extract(ctx context.Context, url string) extract.Result
}

type Summarizer interface {
	Summarize(ctx context.Context, content, title string) summarizer.Result
}

type Compiler interface {
	Compile(ctx context.Context, theme string, summaries []models.Summary) compiler.Result
}

type Ingester interface {
	Run(ctx context.Context) ingest.Stats
}

// Deps lists what App is built from. Events and Archive are optional.
type Deps struct {
	Store      store.Store
	Extractor  Extractor
	Summarizer Summarizer
	Compiler   Compiler
	Ingester   Ingester
	Events     events.Publisher
	Archive    archive.Archiver
	Logger     *slog.Logger
}

// App is created once per process and shared by every handler.
type App struct {
	store      store.Store
	extractor  Extractor
	summarizer Summarizer
	compiler   Compiler
	ingester   Ingester
	events     events.Publisher
	archive    archive.Archiver
	log        *slog.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	bg     sync.WaitGroup
}

func New(d Deps) *App {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Archive == nil {
		d.Archive = archive.Nop{}
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		store:      d.Store,
		extractor:  d.Extractor,
		summarizer: d.Summarizer,
		compiler:   d.Compiler,
		ingester:   d.Ingester,
		events:     d.Events,
		archive:    d.Archive,
		log:        d.Logger,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Close cancels background work, waits for it or for ctx, then closes the event publisher.
func (a *App) Close(ctx context.Context) error {
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := a.events.Close(); err != nil {
		return fmt.Errorf("close events: %w", err)
	}
	return nil
}

// Health reports whether the store is reachable.
func (a *App) Health(ctx context.Context) error {
	return a.store.Health(ctx)
}

// RunIngest runs the ingestion job synchronously.
func (a *App) RunIngest(ctx context.Context) ingest.Stats {
	return a.ingester.Run(ctx)
}

// TriggerIngest starts the ingestion job in the background and returns at once.
// Overlapping runs are allowed.
func (a *App) TriggerIngest() {
	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		a.ingester.Run(a.ctx)
	}()
}

func (a *App) publish(ctx context.Context, ev events.Event) {
	if err := a.events.Publish(ctx, ev); err != nil {
		a.log.Warn("publish event", slog.String("type", ev.Type), slog.Any("err", err))
	}
}

func validateSourceInput(in models.SourceInput) (models.SourceInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)
	in.Category = strings.TrimSpace(in.Category)

	if in.Name == "" {
		return in, badRequest("name is required")
	}
	if err := validateURL(in.URL); err != nil {
		return in, err
	}
	return in, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return badRequest("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return badRequest("url must be an absolute http(s) URL")
	}
	return nil
}
