// Package session tracks issued refresh tokens in Redis so logout and
// account deletion can revoke them before they expire.
package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records refresh token ids per user.
type Store interface {
	Save(ctx context.Context, userID, tokenID string, ttl time.Duration) error
	Active(ctx context.Context, userID, tokenID string) (bool, error)
	Revoke(ctx context.Context, userID, tokenID string) error
	RevokeAll(ctx context.Context, userID string) error
}

type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Save(ctx context.Context, userID, tokenID string, ttl time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, tokenKey(userID, tokenID), "1", ttl)
	pipe.SAdd(ctx, indexKey(userID), tokenID)
	pipe.Expire(ctx, indexKey(userID), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Active(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, tokenKey(userID, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Revoke(ctx context.Context, userID, tokenID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, tokenKey(userID, tokenID))
	pipe.SRem(ctx, indexKey(userID), tokenID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RevokeAll(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, tokenKey(userID, id))
	}
	keys = append(keys, indexKey(userID))
	return s.rdb.Del(ctx, keys...).Err()
}

func tokenKey(userID, tokenID string) string {
	return "session:" + userID + ":" + tokenID
}

func indexKey(userID string) string {
	return "session:" + userID
}
