package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/metrics"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
)

// HistoryService persists completed research and serves the history log.
type HistoryService struct {
	store  storage.HistoryStore
	logger Logger
	now    func() time.Time
}

func NewHistoryService(store storage.HistoryStore, logger Logger) *HistoryService {
	return &HistoryService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Record saves a completed task. It matches CompletionHook so it can be registered with
// WithCompletionHook; failures are logged and never fail the task.
func (hs *HistoryService) Record(ctx context.Context, task models.Task, result models.Result) {
	question := result.Question
	if question == "" {
		question = task.Question
	}
	rec := models.HistoryRecord{
		ID:        task.ID,
		Question:  question,
		Answer:    result.Answer,
		Sources:   models.Sources(result.Sources),
		CreatedAt: hs.now().UTC(),
	}
	if rec.Sources == nil {
		rec.Sources = models.Sources{}
	}
	if err := hs.store.Save(ctx, rec); err != nil {
		metrics.HistoryWrites.WithLabelValues("error").Inc()
		hs.logger.Errorf("Failed to save history record %s: %v", rec.ID, err)
		return
	}
	metrics.HistoryWrites.WithLabelValues("ok").Inc()
	hs.logger.Infof("Saved history record %s", rec.ID)
}

func (hs *HistoryService) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	rec, err := hs.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.HistoryRecord{}, err
		}
		hs.logger.Errorf("Failed to load history record %s: %v", id, err)
		return models.HistoryRecord{}, fmt.Errorf("failed to load history record %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (hs *HistoryService) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	recs, err := hs.store.List(ctx, limit)
	if err != nil {
		hs.logger.Errorf("Failed to list history: %v", err)
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return recs, nil
}

func (hs *HistoryService) Clear(ctx context.Context) error {
	if err := hs.store.Clear(ctx); err != nil {
		hs.logger.Errorf("Failed to clear history: %v", err)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	hs.logger.Infof("Research history cleared")
	return nil
}
