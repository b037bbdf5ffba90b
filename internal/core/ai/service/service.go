package service

import (
	"context"
	"errors"
	"strings"

	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// Response AI 回應
type Response struct {
	Content  string `json:"content"`
	CacheHit bool   `json:"cache_hit"`
}

// Generator 大型語言模型後端
type Generator interface {
	GenerateResponse(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Service AI 服務，負責快取與呼叫模型
type Service struct {
	generator Generator
	cache     cache.Store
}

// NewService 創建 AI 服務；store 為 nil 時不使用快取
func NewService(generator Generator, store cache.Store) *Service {
	return &Service{
		generator: generator,
		cache:     store,
	}
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, systemPrompt, prompt string) (*Response, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, common.ErrInvalidInput.WithMessage("prompt is empty")
	}

	key := cacheKey(systemPrompt, prompt)
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cache.NamespaceRecipe, key)
		if err == nil && len(data) > 0 {
			return &Response{Content: string(data), CacheHit: true}, nil
		}
		if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.Error(err))
		}
	}

	content, err := s.generator.GenerateResponse(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.NamespaceRecipe, key, []byte(content)); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return &Response{Content: content}, nil
}

// cacheKey 統一空白，確保相同內容得到相同的快取鍵
func cacheKey(systemPrompt, prompt string) string {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	return normalize(systemPrompt) + "\x00" + normalize(prompt)
}
