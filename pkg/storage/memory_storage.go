package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
)

// memoryStore implements HistoryStore with in-process storage
type memoryStore struct {
	mu      sync.RWMutex
	records map[string]models.HistoryRecord
}

// NewMemoryStore returns a HistoryStore that lives for the lifetime of the process.
func NewMemoryStore() HistoryStore {
	return &memoryStore{records: make(map[string]models.HistoryRecord)}
}

func (m *memoryStore) Save(_ context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Sources = append(models.Sources{}, rec.Sources...)
	m.records[rec.ID] = rec
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (models.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return models.HistoryRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *memoryStore) List(_ context.Context, limit int) ([]models.HistoryRecord, error) {
	m.mu.RLock()
	out := make([]models.HistoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	m.mu.RUnlock()
	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]models.HistoryRecord)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

// SortNewestFirst orders records by timestamp descending, breaking ties by ID.
func SortNewestFirst(recs []models.HistoryRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
