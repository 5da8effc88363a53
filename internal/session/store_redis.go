package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/groupcar/groupcar-server/internal/domain"
)

// RedisStore persists session records as JSON values whose TTL tracks
// the record's absolute expiry, so Redis evicts what the state machine
// would reject anyway.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Create(ctx context.Context, rec *domain.Session) error {
	return s.write(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec domain.Session
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	if expired(&rec, time.Now()) {
		_ = s.Destroy(ctx, id)
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *domain.Session) error {
	exists, err := s.client.Exists(ctx, s.key(rec.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	return s.write(ctx, rec)
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisStore) write(ctx context.Context, rec *domain.Session) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already past absolute expiry", rec.ID)
	}
	return s.client.Set(ctx, s.key(rec.ID), raw, ttl).Err()
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}
