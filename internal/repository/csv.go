package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mr1hm/go-pager-losses/internal/ingestion"
	"github.com/mr1hm/go-pager-losses/internal/models"
)

// CSVStore keeps exposures in a single CSV file. Save merges with what is
// already on disk and rewrites the file.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Load(ctx context.Context) ([]models.Exposure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *CSVStore) load() ([]models.Exposure, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Exposure{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error while opening exposure cache: %w", err)
	}
	defer f.Close()

	exposures, err := ingestion.ReadExposureCSV(f)
	if err != nil {
		return nil, fmt.Errorf("error while reading %s: %w", s.path, err)
	}
	if exposures == nil {
		exposures = []models.Exposure{}
	}
	return exposures, nil
}

func (s *CSVStore) Save(ctx context.Context, exposures []models.Exposure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return err
	}
	merged := mergeExposures(existing, exposures)

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error while creating cache directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("error while creating exposure cache: %w", err)
	}
	if err := ingestion.WriteExposureCSV(f, merged); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("error while writing exposure cache: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error while closing exposure cache: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *CSVStore) Get(ctx context.Context, eventID string) (*models.Exposure, error) {
	exposures, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exposures {
		if exposures[i].EventID == eventID {
			return &exposures[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *CSVStore) Close() error {
	return nil
}

// mergeExposures keeps the order of existing rows, replacing those whose id
// appears in updates, and appends new ids in update order.
func mergeExposures(existing, updates []models.Exposure) []models.Exposure {
	byID := make(map[string]models.Exposure, len(updates))
	order := make([]string, 0, len(updates))
	for _, e := range updates {
		if _, ok := byID[e.EventID]; !ok {
			order = append(order, e.EventID)
		}
		byID[e.EventID] = e
	}

	out := make([]models.Exposure, 0, len(existing)+len(updates))
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		if u, ok := byID[e.EventID]; ok {
			e = u
		}
		seen[e.EventID] = true
		out = append(out, e)
	}
	for _, id := range order {
		if !seen[id] {
			out = append(out, byID[id])
		}
	}
	return out
}
