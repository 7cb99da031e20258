package storage_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	internal_storage "github.com/Aryanchhabra/DeepResearchAI/internal/storage"
	"github.com/Aryanchhabra/DeepResearchAI/internal/testutil"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string, at time.Time) models.HistoryRecord {
	return models.HistoryRecord{
		ID:        id,
		Question:  "What is " + id + "?",
		Answer:    "Answer for " + id + " [1].",
		Sources:   models.Sources{{Title: "Source " + id, URL: "https://example.com/" + id}},
		CreatedAt: at,
	}
}

// exerciseStore runs the HistoryStore contract against any backend.
func exerciseStore(t *testing.T, store storage.HistoryStore) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("SaveGet", func(t *testing.T) {
		rec := record("a1", base)
		require.NoError(t, store.Save(ctx, rec))
		got, err := store.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Question, got.Question)
		assert.Equal(t, rec.Answer, got.Answer)
		assert.Equal(t, rec.Sources, got.Sources)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt), "want %v got %v", rec.CreatedAt, got.CreatedAt)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		rec := record("a1", base)
		rec.Answer = "updated"
		require.NoError(t, store.Save(ctx, rec))
		got, err := store.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "updated", got.Answer)
	})

	t.Run("EmptySources", func(t *testing.T) {
		rec := record("nosrc", base.Add(-time.Hour))
		rec.Sources = nil
		require.NoError(t, store.Save(ctx, rec))
		got, err := store.Get(ctx, "nosrc")
		require.NoError(t, err)
		assert.NotNil(t, got.Sources)
		assert.Empty(t, got.Sources)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record("b2", base.Add(time.Minute))))
		require.NoError(t, store.Save(ctx, record("c3", base.Add(2*time.Minute))))

		recs, err := store.List(ctx, 0)
		require.NoError(t, err)
		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		assert.Equal(t, []string{"c3", "b2", "a1", "nosrc"}, ids)

		recs, err = store.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "c3", recs[0].ID)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx))
		recs, err := store.List(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, recs)
		_, err = store.Get(ctx, "a1")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, storage.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := internal_storage.NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)

	t.Run("RejectsPathIDs", func(t *testing.T) {
		err := store.Save(context.Background(), record("../escape", time.Now()))
		assert.Error(t, err)
		_, err = store.Get(context.Background(), "../escape")
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
}

func TestSQLiteStore(t *testing.T) {
	path := testutil.SetupSQLite(t)
	store, err := internal_storage.NewSQLStore("sqlite3", path)
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := internal_storage.NewRedisStoreWithClient(client)
	defer store.Close()
	exerciseStore(t, store)

	t.Run("Layout", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, record("k1", time.Now())))
		assert.True(t, mr.Exists("deepresearch:history:k1"))
		members, err := mr.ZMembers("deepresearch:history:index")
		require.NoError(t, err)
		assert.Contains(t, members, "k1")
	})
}

func TestPostgresStore(t *testing.T) {
	testDB := testutil.SetupTestDB(t)
	defer testDB.Teardown(t)

	store, err := internal_storage.NewSQLStore("postgres", testDB.ConnStr)
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestInitStore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		opts    internal_storage.Options
		wantErr bool
	}{
		{"File", internal_storage.Options{Driver: "file", Dir: t.TempDir()}, false},
		{"Memory", internal_storage.Options{Driver: "memory"}, false},
		{"SQLiteWithoutDSN", internal_storage.Options{Driver: "sqlite3"}, true},
		{"RedisWithoutAddr", internal_storage.Options{Driver: "redis"}, true},
		{"Unknown", internal_storage.Options{Driver: "mongo"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := internal_storage.InitStore(ctx, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, store.Close())
		})
	}

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := internal_storage.InitStore(ctx, internal_storage.Options{Driver: "redis", RedisAddr: mr.Addr()})
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})

	t.Run("SQLite", func(t *testing.T) {
		path := testutil.SetupSQLite(t)
		store, err := internal_storage.InitStore(ctx, internal_storage.Options{Driver: "sqlite3", DSN: path})
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})
}

func ExampleInitStore() {
	store, err := internal_storage.InitStore(context.Background(), internal_storage.Options{Driver: "memory"})
	if err != nil {
		panic(err)
	}
	defer store.Close()
	recs, _ := store.List(context.Background(), 10)
	fmt.Println(len(recs))
	// Output: 0
}
