package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/edustep/placement-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessionCache holds the working answer set and start timestamp for each
// in-flight session, and feeds the async persistence queues. Every key is
// namespaced by session UUID; timer state is never shared across sessions.
type RedisSessionCache struct {
	rdb *redis.Client
}

// NewRedisSessionCache creates a RedisSessionCache.
func NewRedisSessionCache(rdb *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{rdb: rdb}
}

// SaveAnswer stores one raw answer in the session hash and queues it for
// database persistence.
func (c *RedisSessionCache) SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, raw string) error {
	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	if err := c.rdb.HSet(ctx, key, questionID.String(), raw).Err(); err != nil {
		return fmt.Errorf("cache answer: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"session_id":  sessionID.String(),
		"question_id": questionID.String(),
		"raw_value":   raw,
	})
	return c.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err()
}

// SaveAnswers stores a partial answer map with per-question overwrite
// semantics and queues each entry for persistence.
func (c *RedisSessionCache) SaveAnswers(ctx context.Context, sessionID uuid.UUID, answers map[uuid.UUID]string) error {
	if len(answers) == 0 {
		return nil
	}

	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	pipe := c.rdb.Pipeline()
	for qid, raw := range answers {
		pipe.HSet(ctx, key, qid.String(), raw)

		payload, _ := json.Marshal(map[string]interface{}{
			"session_id":  sessionID.String(),
			"question_id": qid.String(),
			"raw_value":   raw,
		})
		pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("cache answers: %w", err)
	}
	return nil
}

// Answers returns the session's working answer set keyed by question ID.
// Hash fields that are not valid UUIDs are skipped.
func (c *RedisSessionCache) Answers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}

	out := make(map[uuid.UUID]string, len(raw))
	for field, val := range raw {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		out[qid] = val
	}
	return out, nil
}

// Clear removes the session's working answer set after finalization.
func (c *RedisSessionCache) Clear(ctx context.Context, sessionID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Err()
}

// SetStartedAt caches the session's start timestamp as Unix nanoseconds.
// Full precision matters: the countdown falls back to the database row on a
// miss, and a coarser cached value would let the remaining time tick up.
func (c *RedisSessionCache) SetStartedAt(ctx context.Context, sessionID uuid.UUID, startedAt time.Time) error {
	key := config.CacheKey.SessionStartKey(sessionID.String())
	return c.rdb.Set(ctx, key, startedAt.UnixNano(), 0).Err()
}

// StartedAt reads the cached start timestamp. The second return value is
// false on a cache miss; the caller falls back to the database and self-heals
// via SetStartedAt.
func (c *RedisSessionCache) StartedAt(ctx context.Context, sessionID uuid.UUID) (time.Time, bool, error) {
	key := config.CacheKey.SessionStartKey(sessionID.String())
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get start time: %w", err)
	}

	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return time.Unix(0, nanos), true, nil
}

// EnqueueNote pushes an audit note onto the batch persistence queue.
func (c *RedisSessionCache) EnqueueNote(ctx context.Context, sessionID uuid.UUID, note string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id": sessionID.String(),
		"note":       note,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	})
	return c.rdb.RPush(ctx, config.WorkerKey.AuditNotesQueue, payload).Err()
}
