package cache

import (
	"fmt"
	"strings"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
)

// Cache backends
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// New builds the cache backend named by cacheType
func New(cacheType, redisURL string) (domain.CacheRepository, error) {
	switch strings.ToLower(strings.TrimSpace(cacheType)) {
	case "", TypeMemory:
		return NewMemoryCache(), nil
	case TypeRedis:
		rc, err := NewRedisCache(redisURL)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cacheType)
	}
}
