package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "deckpilot:history:"

// RedisStore keeps a capped, newest-first list per session.
type RedisStore struct {
	client     *redis.Client
	perSession int64
	ttl        time.Duration
}

func NewRedisStore(ctx context.Context, url string, perSession int, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return newRedisStore(client, perSession, ttl), nil
}

func newRedisStore(client *redis.Client, perSession int, ttl time.Duration) *RedisStore {
	if perSession <= 0 {
		perSession = 500
	}
	return &RedisStore{client: client, perSession: int64(perSession), ttl: ttl}
}

func (s *RedisStore) Record(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	key := redisKeyPrefix + e.SessionID
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, payload)
		p.LTrim(ctx, key, 0, s.perSession-1)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	raw, err := s.client.LRange(ctx, redisKeyPrefix+sessionID, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	items := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		items = append(items, e)
	}
	reverse(items)
	return items, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
