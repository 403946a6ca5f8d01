// Package memory is an in-process store.Store used for local runs and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/DeafMist/veille/backend/internal/models"
	"github.com/DeafMist/veille/backend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	sources   map[string]models.Source
	summaries map[string]models.Summary
	articles  map[string]models.Article
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sources:   make(map[string]models.Source),
		summaries: make(map[string]models.Summary),
		articles:  make(map[string]models.Article),
	}
}

func (s *Store) InsertSource(_ context.Context, src models.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = cloneSource(src)
	return nil
}

func (s *Store) GetSource(_ context.Context, id string) (models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[id]
	if !ok {
		return models.Source{}, store.ErrNotFound
	}
	return cloneSource(src), nil
}

func (s *Store) ListSources(_ context.Context, activeOnly bool) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if activeOnly && !src.Active {
			continue
		}
		out = append(out, cloneSource(src))
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) UpdateSource(_ context.Context, id string, in models.SourceInput) (models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return models.Source{}, store.ErrNotFound
	}
	src.Name = in.Name
	src.URL = in.URL
	src.Category = in.Category
	src.Tags = slices.Clone(in.Tags)
	if src.Tags == nil {
		src.Tags = []string{}
	}
	s.sources[id] = src
	return cloneSource(src), nil
}

func (s *Store) SetSourceActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	src.Active = active
	s.sources[id] = src
	return nil
}

func (s *Store) TouchSource(_ context.Context, id string, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return store.ErrNotFound
	}
	ts := checkedAt.UTC()
	src.LastChecked = &ts
	s.sources[id] = src
	return nil
}

func (s *Store) DeleteSource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sources, id)
	return nil
}

func (s *Store) InsertSummary(_ context.Context, sum models.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum.Tags = slices.Clone(sum.Tags)
	s.summaries[sum.ID] = sum
	return nil
}

func (s *Store) GetSummary(_ context.Context, id string) (models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.summaries[id]
	if !ok {
		return models.Summary{}, store.ErrNotFound
	}
	sum.Tags = slices.Clone(sum.Tags)
	return sum, nil
}

func (s *Store) GetSummaries(_ context.Context, ids []string) ([]models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Summary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := s.summaries[id]; ok {
			sum.Tags = slices.Clone(sum.Tags)
			out = append(out, sum)
		}
	}
	return out, nil
}

func (s *Store) ListSummaries(_ context.Context, filter store.SummaryFilter) ([]models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Summary, 0, len(s.summaries))
	for _, sum := range s.summaries {
		if filter.Category != "" && sum.Category != filter.Category {
			continue
		}
		if filter.Tag != "" && !slices.Contains(sum.Tags, filter.Tag) {
			continue
		}
		if filter.IsNew != nil && sum.IsNew != *filter.IsNew {
			continue
		}
		sum.Tags = slices.Clone(sum.Tags)
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) MarkSummaryRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[id]
	if !ok {
		return store.ErrNotFound
	}
	sum.IsNew = false
	s.summaries[id] = sum
	return nil
}

func (s *Store) DeleteSummary(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.summaries[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.summaries, id)
	return nil
}

func (s *Store) InsertArticle(_ context.Context, a models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID] = a
	return nil
}

func (s *Store) GetArticle(_ context.Context, id string) (models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return models.Article{}, store.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListArticles(_ context.Context) ([]models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

func (s *Store) DeleteArticle(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.articles, id)
	return nil
}

func (s *Store) Tags(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, sum := range s.summaries {
		for _, t := range sum.Tags {
			set[t] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func (s *Store) Categories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{})
	for _, src := range s.sources {
		if src.Category != "" {
			set[src.Category] = struct{}{}
		}
	}
	for _, sum := range s.summaries {
		if sum.Category != "" {
			set[sum.Category] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func (s *Store) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.Stats{
		TotalSources:   int64(len(s.sources)),
		TotalSummaries: int64(len(s.summaries)),
		TotalArticles:  int64(len(s.articles)),
	}
	for _, src := range s.sources {
		if src.Active {
			st.ActiveSources++
		}
	}
	for _, sum := range s.summaries {
		if sum.IsNew {
			st.NewSummaries++
		}
	}
	return st, nil
}

func (s *Store) Health(context.Context) error { return nil }

func cloneSource(src models.Source) models.Source {
	src.Tags = slices.Clone(src.Tags)
	if src.LastChecked != nil {
		ts := *src.LastChecked
		src.LastChecked = &ts
	}
	return src
}

func newer(a, b time.Time, idA, idB string) bool {
	if a.Equal(b) {
		return idA < idB
	}
	return a.After(b)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
