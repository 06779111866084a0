package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/clipforge/highlight-pipeline/pkg/models"
)

// ExportStore tracks produced deliverables keyed by export id.
type ExportStore struct {
	mu      sync.RWMutex
	exports map[string]models.ExportRecord
}

// NewExportStore creates an empty ExportStore.
func NewExportStore() *ExportStore {
	return &ExportStore{
		exports: make(map[string]models.ExportRecord),
	}
}

// Put stores an export record, overwriting any record with the same id.
func (s *ExportStore) Put(rec models.ExportRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.exports[rec.ID] = rec
}

// Get returns the export record with the given id.
func (s *ExportStore) Get(id string) (models.ExportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.exports[id]
	if !ok {
		return models.ExportRecord{}, models.ErrExportNotFound
	}
	return rec, nil
}

// List returns all export records, newest first.
func (s *ExportStore) List() []models.ExportRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ExportRecord, 0, len(s.exports))
	for _, rec := range s.exports {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
