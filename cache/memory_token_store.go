package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/shadow-auth/domain"
)

// MemoryClaimsStore implements ClaimsStore using ttlcache.
type MemoryClaimsStore struct {
	cache  *ttlcache.Cache[string, *domain.TokenClaims]
	maxTTL time.Duration
}

// NewMemoryClaimsStore creates a new in-memory claims store with automatic cleanup.
// maxTTL caps the lifetime of every entry.
func NewMemoryClaimsStore(maxTTL time.Duration) *MemoryClaimsStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.TokenClaims](maxTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.TokenClaims](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryClaimsStore{
		cache:  cache,
		maxTTL: maxTTL,
	}
}

// Set implements ClaimsStore.Set.
func (s *MemoryClaimsStore) Set(_ context.Context, token string, claims *domain.TokenClaims) error {
	ttl := EntryTTL(claims, s.maxTTL, time.Now())
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(HashToken(token), claims, ttl)

	return nil
}

// Get implements ClaimsStore.Get.
func (s *MemoryClaimsStore) Get(_ context.Context, token string) (*domain.TokenClaims, error) {
	item := s.cache.Get(HashToken(token))
	if item == nil || item.IsExpired() {
		return nil, ErrNotFound
	}

	return item.Value(), nil
}

// Delete removes a token from the cache.
func (s *MemoryClaimsStore) Delete(_ context.Context, token string) error {
	s.cache.Delete(HashToken(token))

	return nil
}

// Count counts the number of cached entries.
func (s *MemoryClaimsStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryClaimsStore) Close() error {
	s.cache.Stop()

	return nil
}

var _ ClaimsStore = (*MemoryClaimsStore)(nil)
