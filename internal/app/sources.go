package app

import (
	"context"
	"fmt"

	"github.com/DeafMist/veille/backend/internal/models"
)

func (a *App) CreateSource(ctx context.Context, in models.SourceInput) (models.Source, error) {
	in, err := validateSourceInput(in)
	if err != nil {
		return models.Source{}, err
	}

	src := models.NewSource(in, a.now())
	if err := a.store.InsertSource(ctx, src); err != nil {
		return models.Source{}, fmt.Errorf("insert source: %w", err)
	}
	return src, nil
}

func (a *App) ListSources(ctx context.Context) ([]models.Source, error) {
	return a.store.ListSources(ctx, false)
}

func (a *App) GetSource(ctx context.Context, id string) (models.Source, error) {
	return a.store.GetSource(ctx, id)
}

// UpdateSource replaces name, url, category and tags. Active and last_checked are kept.
func (a *App) UpdateSource(ctx context.Context, id string, in models.SourceInput) (models.Source, error) {
	in, err := validateSourceInput(in)
	if err != nil {
		return models.Source{}, err
	}
	return a.store.UpdateSource(ctx, id, in)
}

// DeleteSource removes the source. Its summaries keep their source_id.
func (a *App) DeleteSource(ctx context.Context, id string) error {
	return a.store.DeleteSource(ctx, id)
}

// ToggleSource inverts the active flag and returns the new value.
func (a *App) ToggleSource(ctx context.Context, id string) (bool, error) {
	src, err := a.store.GetSource(ctx, id)
	if err != nil {
		return false, err
	}

	active := !src.Active
	if err := a.store.SetSourceActive(ctx, id, active); err != nil {
		return false, err
	}
	return active, nil
}

func (a *App) Tags(ctx context.Context) ([]string, error) {
	return a.store.Tags(ctx)
}

func (a *App) Categories(ctx context.Context) ([]string, error) {
	return a.store.Categories(ctx)
}

func (a *App) Stats(ctx context.Context) (models.Stats, error) {
	return a.store.Stats(ctx)
}
