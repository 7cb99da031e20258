package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/service"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	storage.HistoryStore
}

func (failingStore) Save(context.Context, models.HistoryRecord) error {
	return errors.New("disk full")
}

func TestHistoryService(t *testing.T) {
	ctx := context.Background()

	t.Run("RecordAndList", func(t *testing.T) {
		hs := service.NewHistoryService(storage.NewMemoryStore(), logger{})
		task := models.Task{ID: "task-1", Question: "What is quantum entanglement?"}
		hs.Record(ctx, task, models.Result{
			Answer:  "Entangled particles share a state [1].",
			Sources: []models.Source{{Title: "A", URL: "https://a.example"}},
		})
		time.Sleep(2 * time.Millisecond)
		hs.Record(ctx, models.Task{ID: "task-2", Question: "second"}, models.Result{Question: "second", Answer: "b"})

		rec, err := hs.Get(ctx, "task-1")
		require.NoError(t, err)
		assert.Equal(t, "What is quantum entanglement?", rec.Question)
		assert.Equal(t, models.Sources{{Title: "A", URL: "https://a.example"}}, rec.Sources)
		assert.False(t, rec.CreatedAt.IsZero())

		recs, err := hs.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "task-2", recs[0].ID, "newest first")
		assert.NotNil(t, recs[1].Sources)

		recs, err = hs.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("GetMissing", func(t *testing.T) {
		hs := service.NewHistoryService(storage.NewMemoryStore(), logger{})
		_, err := hs.Get(ctx, "missing")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})

	t.Run("Clear", func(t *testing.T) {
		hs := service.NewHistoryService(storage.NewMemoryStore(), logger{})
		hs.Record(ctx, models.Task{ID: "x", Question: "q"}, models.Result{Answer: "a"})
		require.NoError(t, hs.Clear(ctx))
		recs, err := hs.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("SaveFailureIsSwallowed", func(t *testing.T) {
		hs := service.NewHistoryService(failingStore{storage.NewMemoryStore()}, logger{})
		assert.NotPanics(t, func() {
			hs.Record(ctx, models.Task{ID: "x", Question: "q"}, models.Result{Answer: "a"})
		})
	})

	t.Run("AsCompletionHook", func(t *testing.T) {
		store := storage.NewMemoryStore()
		hs := service.NewHistoryService(store, logger{})
		c := newCoordinator(t, scripted(), testConfig(), service.WithCompletionHook(hs.Record))

		id, err := c.Submit("What is quantum entanglement?", models.ResearchOptions{})
		require.NoError(t, err)
		_, err = c.Wait(ctx, id)
		require.NoError(t, err)

		rec, err := store.Get(ctx, id)
		require.NoError(t, err, "record exists once the task is completed")
		assert.Equal(t, id, rec.ID)
		assert.Len(t, rec.Sources, 1)
	})
}
