package core

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/anoixa/story-overlay/cache/types"
	"github.com/anoixa/story-overlay/storage"
)

// checkDatabaseHealth 检查数据库连接
func checkDatabaseHealth(db *gorm.DB) string {
	if db == nil {
		return "unavailable"
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "error: " + err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// checkCacheHealth 检查缓存连接，缓存关闭时报告 disabled
func checkCacheHealth(cache types.Cache) string {
	if cache == nil {
		return "disabled"
	}
	if _, err := cache.Exists("health:probe"); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// checkStorageHealth 检查存储提供者
func checkStorageHealth(store storage.Provider) string {
	if store == nil {
		return "unavailable"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
