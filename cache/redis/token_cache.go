package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/shadow-auth/cache"
	"github.com/pilab-dev/shadow-auth/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ClaimsStore implements cache.ClaimsStore using Redis, so several server instances
// share verified token claims.
type ClaimsStore struct {
	client *redis.Client
	prefix string // Optional prefix for keys
	maxTTL time.Duration
}

// NewClaimsStore creates a new [ClaimsStore] instance
func NewClaimsStore(client *redis.Client, prefix string, maxTTL time.Duration) *ClaimsStore {
	return &ClaimsStore{
		client: client,
		prefix: prefix,
		maxTTL: maxTTL,
	}
}

// redisKey returns the Redis key for a given token
func (r *ClaimsStore) redisKey(tokenHash string) string {
	return fmt.Sprintf("%s:claims:%s", r.prefix, tokenHash)
}

// Set stores the claims until the token expires (capped at maxTTL).
func (r *ClaimsStore) Set(ctx context.Context, token string, claims *domain.TokenClaims) error {
	ttl := cache.EntryTTL(claims, r.maxTTL, time.Now())
	if ttl <= 0 {
		return nil
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return fmt.Errorf("failed to marshal claims: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(cache.HashToken(token)), claimsJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set claims in Redis: %w", err)
	}

	return nil
}

// Get retrieves cached claims from Redis
func (r *ClaimsStore) Get(ctx context.Context, token string) (*domain.TokenClaims, error) {
	res, err := r.client.Get(ctx, r.redisKey(cache.HashToken(token))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claims from Redis: %w", err)
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(res, &claims); err != nil {
		log.Warn().Err(err).Msg("dropping undecodable cached claims")
		_ = r.Delete(ctx, token)
		return nil, cache.ErrNotFound
	}

	return &claims, nil
}

// Delete removes cached claims from Redis
func (r *ClaimsStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.redisKey(cache.HashToken(token))).Err()
}

// Count returns the number of cached entries in Redis
func (r *ClaimsStore) Count(ctx context.Context) int {
	pattern := r.redisKey("*")
	var count int
	var cursor uint64

	for {
		var keys []string
		var err error
		keys, cursor, err = r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Error().Err(err).Msg("error scanning cached claims")
			break
		}
		count += len(keys)
		if cursor == 0 {
			break
		}
	}
	return count
}

var _ cache.ClaimsStore = (*ClaimsStore)(nil)
