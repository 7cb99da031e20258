package storage

import (
	"context"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a history record does not exist.
var ErrNotFound = errors.New("record not found")

// HistoryStore defines the persistence operations for completed research.
type HistoryStore interface {
	// Save appends a record. Saving an existing ID overwrites it.
	Save(ctx context.Context, rec models.HistoryRecord) error
	Get(ctx context.Context, id string) (models.HistoryRecord, error)
	// List returns records newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]models.HistoryRecord, error)
	// Clear removes every record.
	Clear(ctx context.Context) error
	Close() error
}
