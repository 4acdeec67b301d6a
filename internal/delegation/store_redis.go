package delegation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "tokenctx/pkg/domain"
	"tokenctx/pkg/platform/sentinel"
)

const delegationKeyPrefix = "tokenctx:dlg:"

// RedisStore is a Redis-backed delegation store for distributed deployments.
// Records carry an expiry at their until timestamp, so Redis eviction doubles
// as the lazy decay to None: an expired record simply reads as missing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func delegationKey(token id.TokenID) string {
	return delegationKeyPrefix + token.String()
}

func (s *RedisStore) Get(ctx context.Context, token id.TokenID) (*Delegation, error) {
	fields, err := s.client.HGetAll(ctx, delegationKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("get delegation: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}

	untilUnix, err := strconv.ParseInt(fields["until"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse delegation until: %w", err)
	}
	return &Delegation{
		Delegatee: id.Identity(fields["delegatee"]),
		Until:     time.Unix(untilUnix, 0).UTC(),
		Delegated: fields["delegated"] == "1",
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, token id.TokenID, record Delegation) error {
	key := delegationKey(token)
	delegated := "0"
	if record.Delegated {
		delegated = "1"
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"delegatee", record.Delegatee.String(),
		"until", strconv.FormatInt(record.Until.Unix(), 10),
		"delegated", delegated,
	)
	pipe.ExpireAt(ctx, key, record.Until)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put delegation: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, token id.TokenID) error {
	if err := s.client.Del(ctx, delegationKey(token)).Err(); err != nil {
		return fmt.Errorf("delete delegation: %w", err)
	}
	return nil
}
