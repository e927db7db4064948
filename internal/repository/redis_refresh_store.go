package repository

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/prohmpiriya/role-portal/internal/domain"
	"github.com/prohmpiriya/role-portal/pkg/redis"
)

const consumeRefreshScript = `
local owner = redis.call("GET", KEYS[1])
if not owner then
	return 0
end
if owner ~= ARGV[1] then
	return -1
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[2])
return 1
`

// RedisRefreshStore keeps one key per live refresh token plus a per-user index
type RedisRefreshStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRefreshStore creates a RedisRefreshStore. now must be the clock the
// token codec uses; nil means time.Now.
func NewRedisRefreshStore(client *redis.Client, now func() time.Time) *RedisRefreshStore {
	if now == nil {
		now = time.Now
	}
	return &RedisRefreshStore{client: client, now: now}
}

func refreshKey(tokenID string) string {
	return "refresh:" + tokenID
}

func refreshIndexKey(userID string) string {
	return "refresh:user:" + userID
}

func (s *RedisRefreshStore) Save(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	_, err := s.client.Client().TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, refreshKey(tokenID), userID, ttl)
		pipe.SAdd(ctx, refreshIndexKey(userID), tokenID)
		pipe.Expire(ctx, refreshIndexKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save refresh token: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisRefreshStore) Consume(ctx context.Context, userID, tokenID string) (bool, error) {
	res, err := s.client.EvalWithFallback(ctx, "consume_refresh", consumeRefreshScript,
		[]string{refreshKey(tokenID), refreshIndexKey(userID)}, userID, tokenID).Int()
	if err != nil {
		return false, fmt.Errorf("consume refresh token: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return res == 1, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, userID, tokenID string) error {
	_, err := s.Consume(ctx, userID, tokenID)
	return err
}

func (s *RedisRefreshStore) RevokeAll(ctx context.Context, userID string) error {
	rdb := s.client.Client()
	ids, err := rdb.SMembers(ctx, refreshIndexKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w: %v", domain.ErrStoreUnavailable, err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, refreshKey(id))
	}
	keys = append(keys, refreshIndexKey(userID))
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
