package storage

import (
	"context"
	"encoding/json"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "deepresearch:history:"
	redisIndexKey  = "deepresearch:history:index"
)

// RedisStore keeps each record as a JSON string and indexes ids in a sorted set
// scored by timestamp.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, rec models.HistoryRecord) error {
	if rec.Sources == nil {
		rec.Sources = models.Sources{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+rec.ID, data, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "save history record %s", rec.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.HistoryRecord, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.HistoryRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return models.HistoryRecord{}, errors.Wrapf(err, "get history record %s", id)
	}
	var rec models.HistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.HistoryRecord{}, errors.Wrapf(err, "decode history record %s", id)
	}
	return rec, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, stop).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list history index")
	}
	recs := make([]models.HistoryRecord, 0, len(ids))
	if len(ids) == 0 {
		return recs, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load history records")
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec models.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	storage.SortNewestFirst(recs)
	return recs, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return errors.Wrap(err, "read history index")
	}
	keys := []string{redisIndexKey}
	for _, id := range ids {
		keys = append(keys, redisKeyPrefix+id)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "clear history")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
