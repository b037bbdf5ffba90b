package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"pku-kitchen/internal/infrastructure/config"
	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// 快取命名空間
const (
	NamespaceSearch = "usda:search"
	NamespaceFood   = "usda:food"
	NamespaceRecipe = "recipe"
)

// Store 以命名空間區分的位元組快取；未命中時回傳 common.ErrCacheMiss
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Stats() map[string]interface{}
	Close() error
}

// NewStore 依設定選擇快取實作；快取停用時回傳 nil
func NewStore(cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	if cfg.Redis.Enabled {
		store, err := NewRedisStore(cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, err
		}
		common.LogInfo("使用 Redis 快取", zap.String("addr", cfg.Redis.Addr))
		return store, nil
	}
	return NewManager(cfg.Cache), nil
}

// HashKey 將任意長度的鍵轉為固定長度
func HashKey(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

func entryKey(namespace, key string) string {
	return namespace + ":" + HashKey(key)
}
