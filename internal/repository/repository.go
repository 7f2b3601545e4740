package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr1hm/go-pager-losses/internal/models"
)

var ErrNotFound = errors.New("exposure not found")

// ExposureStore caches PAGER exposures between runs.
type ExposureStore interface {
	// Load returns every cached exposure. A store with nothing saved yet
	// returns an empty slice and no error.
	Load(ctx context.Context) ([]models.Exposure, error)
	// Save upserts exposures by event id.
	Save(ctx context.Context, exposures []models.Exposure) error
	Get(ctx context.Context, eventID string) (*models.Exposure, error)
	Close() error
}

// Open returns the store named by kind ("csv" or "sqlite") at path.
func Open(kind, path string) (ExposureStore, error) {
	switch kind {
	case "csv", "":
		return NewCSVStore(path), nil
	case "sqlite":
		return NewSQLiteDB(path)
	default:
		return nil, fmt.Errorf("unknown exposure store %q", kind)
	}
}
