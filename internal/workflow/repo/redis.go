package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/contentstudio/server/internal/core/error"
	"github.com/contentstudio/server/internal/workflow/model"
	logx "github.com/contentstudio/server/pkg/logger"
)

const (
	recentKey          = "threads:recent"
	threadNotFound     = "thread not found"
	defaultRecentLimit = 200
)

type RedisThreadRepository struct {
	rdb         redis.Cmdable
	ttl         time.Duration
	recentLimit int
}

func NewRedisThreadRepository(rdb redis.Cmdable, ttl time.Duration, recentLimit int) *RedisThreadRepository {
	if recentLimit <= 0 {
		recentLimit = defaultRecentLimit
	}
	return &RedisThreadRepository{rdb: rdb, ttl: ttl, recentLimit: recentLimit}
}

func (r *RedisThreadRepository) threadKey(id string) string {
	return fmt.Sprintf("thread:%s", id)
}

func (r *RedisThreadRepository) messagesKey(id string) string {
	return fmt.Sprintf("thread:%s:messages", id)
}

func (r *RedisThreadRepository) SaveThread(ctx context.Context, rec *model.ThreadRecord) error {
	if rec == nil || rec.ID == "" {
		return errx.Validation("thread record requires an id")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", rec.ID).Msg("failed to marshal thread record")
		return fmt.Errorf("marshal thread record: %w", err)
	}

	key := r.threadKey(rec.ID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, b, r.ttl)
		// move the id to the head of the recent list
		p.LRem(ctx, recentKey, 0, rec.ID)
		p.LPush(ctx, recentKey, rec.ID)
		p.LTrim(ctx, recentKey, 0, int64(r.recentLimit-1))
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save thread record to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisThreadRepository) GetThread(ctx context.Context, id string) (*model.ThreadRecord, error) {
	key := r.threadKey(id)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.NotFound(err, threadNotFound)
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread record from redis")
		return nil, errx.WrapRedis(err)
	}
	var rec model.ThreadRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal thread record %s: %w", id, err)
	}
	return &rec, nil
}

func (r *RedisThreadRepository) ListThreads(ctx context.Context, limit int) ([]*model.ThreadRecord, error) {
	if limit <= 0 || limit > r.recentLimit {
		limit = r.recentLimit
	}
	ids, err := r.rdb.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", recentKey).Msg("failed to list recent threads")
		return nil, errx.WrapRedis(err)
	}
	if len(ids) == 0 {
		return []*model.ThreadRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.threadKey(id)
	}
	rows, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logx.Error().Err(err).Msg("failed to load thread records from redis")
		return nil, errx.WrapRedis(err)
	}

	out := make([]*model.ThreadRecord, 0, len(rows))
	for i, row := range rows {
		s, ok := row.(string)
		if !ok {
			// expired record still referenced by the recent list
			continue
		}
		var rec model.ThreadRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			logx.Warn().Err(err).Str("thread_id", ids[i]).Msg("skipping unreadable thread record")
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (r *RedisThreadRepository) AddMessage(ctx context.Context, threadID string, message *schema.Message) error {
	b, err := json.Marshal(message)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to marshal message")
		return fmt.Errorf("marshal message: %w", err)
	}
	key := r.messagesKey(threadID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push message to redis")
		return errx.WrapRedis(err)
	}
	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on thread messages key")
		}
	}
	return nil
}

func (r *RedisThreadRepository) LoadHistory(ctx context.Context, threadID string) (*model.ThreadHistory, error) {
	key := r.messagesKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.ThreadHistory{ThreadID: threadID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ThreadHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *RedisThreadRepository) DeleteThread(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.threadKey(id), r.messagesKey(id))
		p.LRem(ctx, recentKey, 0, id)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("thread_id", id).Msg("failed to delete thread from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ThreadRepository = (*RedisThreadRepository)(nil)
