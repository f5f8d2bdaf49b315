package maplink

import (
	"context"
	"time"

	"github.com/bluele/gcache"

	"stopdesk/internal/domain"
)

// MemoryCache is the in-process coordinate cache used when redis is off.
type MemoryCache struct {
	c gcache.Cache
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		c: gcache.New(size).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

func (m *MemoryCache) GetCoordinates(ctx context.Context, shortURL string) (domain.Coordinates, bool) {
	v, err := m.c.Get(shortURL)
	if err != nil {
		return domain.Coordinates{}, false
	}
	c, ok := v.(domain.Coordinates)
	return c, ok
}

func (m *MemoryCache) SetCoordinates(ctx context.Context, shortURL string, c domain.Coordinates) {
	_ = m.c.Set(shortURL, c)
}
