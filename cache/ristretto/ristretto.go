package ristretto

import (
	"encoding/json"
	"time"

	"github.com/anoixa/story-overlay/cache/types"
	"github.com/dgraph-io/ristretto"
)

// Ristretto 实现缓存接口
type Ristretto struct {
	client *ristretto.Cache
}

// Config Ristretto配置
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig 进程内缓存默认配置
func DefaultConfig() Config {
	return Config{
		NumCounters: 100000,
		MaxCost:     64 << 20, // 64MB
		BufferItems: 64,
	}
}

// NewRistretto 创建新的Ristretto实例
func NewRistretto(config Config) (types.Cache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})

	if err != nil {
		return nil, err
	}

	return &Ristretto{
		client: cache,
	}, nil
}

// Set 设置缓存项
func (r *Ristretto) Set(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	set := r.client.SetWithTTL(key, data, int64(len(data)), expiration)
	if set {
		// 等待值被实际设置
		r.client.Wait()
	}
	return nil
}

// Get 获取缓存项
func (r *Ristretto) Get(key string, dest interface{}) error {
	value, found := r.client.Get(key)
	if !found {
		return types.ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return types.ErrCacheMiss
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return types.ErrCacheMiss
	}
	return nil
}

// Delete 删除缓存项
func (r *Ristretto) Delete(key string) error {
	r.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (r *Ristretto) Exists(key string) (bool, error) {
	_, found := r.client.Get(key)
	return found, nil
}

// Close 关闭缓存
func (r *Ristretto) Close() error {
	r.client.Close()
	return nil
}
