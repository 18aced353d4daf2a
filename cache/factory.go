package cache

import (
	"fmt"

	"github.com/anoixa/story-overlay/cache/redis"
	"github.com/anoixa/story-overlay/cache/ristretto"
	"github.com/anoixa/story-overlay/cache/types"
	"github.com/anoixa/story-overlay/config"
)

// New 根据配置创建缓存后端。
// cache_type 为 "none" 时返回 nil，调用方按无缓存处理。
func New(cfg *config.Config) (types.Cache, error) {
	switch cfg.CacheType {
	case "", "none":
		return nil, nil
	case "memory":
		return ristretto.NewRistretto(ristretto.DefaultConfig())
	case "redis":
		return redis.NewRedis(cfg.CacheRedisAddr, cfg.CacheRedisPassword, cfg.CacheRedisDB)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.CacheType)
	}
}
