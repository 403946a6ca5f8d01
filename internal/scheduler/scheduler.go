// Package scheduler runs named recurring jobs on top of robfig/cron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeafMist/veille/backend/internal/logger"
)

var ErrDuplicateID = errors.New("job id already registered")

// TimeOfDay is a wall-clock time in the scheduler's location.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay reads "HH:MM".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid hour", raw)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q: invalid minute", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Job receives the scheduler's base context, cancelled by Stop.
type Job func(ctx context.Context)

// Scheduler owns a cron runner and the ids of the jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New builds a stopped scheduler evaluating specs in loc.
func New(loc *time.Location, log *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Discard()
	}
	cl := cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		log:     log,
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterDaily runs fn every day at the given time.
func (s *Scheduler) RegisterDaily(id string, at TimeOfDay, fn Job) error {
	return s.register(id, fmt.Sprintf("%d %d * * *", at.Minute, at.Hour), fn)
}

func (s *Scheduler) register(id, spec string, fn Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("register %s: %w", id, ErrDuplicateID)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.log.Info("scheduled job started", slog.String("job", id))
		start := time.Now()
		fn(s.ctx)
		s.log.Info("scheduled job finished", slog.String("job", id), slog.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	s.entries[id] = entryID
	s.log.Info("job registered", slog.String("job", id), slog.String("spec", spec))
	return nil
}

// Deregister removes the job. It reports whether the id was known.
func (s *Scheduler) Deregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
	return true
}

// Next returns the next activation of id.
func (s *Scheduler) Next(id string) (time.Time, bool) {
	s.mu.Lock()
	entryID, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		return entry.Schedule.Next(time.Now().In(s.cron.Location())), true
	}
	return entry.Next, true
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop deregisters every job, cancels running ones and waits for them or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{slog.Any("err", err)}, keysAndValues...)...)
}
