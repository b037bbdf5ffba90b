package usda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/infrastructure/config"
	"pku-kitchen/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const serviceName = "usda_fdc"

// Client FoodData Central API 客戶端，實作 phe.FoodDataService
type Client struct {
	client *resty.Client
	apiKey string
	cache  cache.Store
}

var _ phe.FoodDataService = (*Client)(nil)

// NewClient 創建 FDC 客戶端；store 為 nil 時不使用快取
func NewClient(cfg config.USDAConfig, store cache.Store) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Client{
		client: client,
		apiKey: cfg.APIKey,
		cache:  store,
	}
}

// SearchFoods 查詢一頁搜尋結果
func (c *Client) SearchFoods(ctx context.Context, query string, page, pageSize int) ([]phe.FoodCandidate, error) {
	cacheKey := fmt.Sprintf("%s|%d|%d", strings.ToLower(strings.TrimSpace(query)), page, pageSize)

	body, err := c.cached(ctx, cache.NamespaceSearch, cacheKey, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"api_key":    c.apiKey,
				"query":      query,
				"pageSize":   strconv.Itoa(pageSize),
				"pageNumber": strconv.Itoa(page),
			}).
			Get("/foods/search")
	}, zap.String("query", query), zap.Int("page", page))
	if err != nil {
		return nil, err
	}

	return decodeSearch(body)
}

// GetFood 取得單一食物的營養素資料
func (c *Client) GetFood(ctx context.Context, fdcID string) (phe.RawFoodRecord, error) {
	if strings.TrimSpace(fdcID) == "" {
		return phe.RawFoodRecord{}, common.ErrInvalidInput.WithMessage("fdc id is required")
	}

	body, err := c.cached(ctx, cache.NamespaceFood, fdcID, func() (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetPathParam("fdcId", fdcID).
			SetQueryParam("api_key", c.apiKey).
			Get("/food/{fdcId}")
	}, zap.String("fdc_id", fdcID))
	if err != nil {
		return phe.RawFoodRecord{}, err
	}

	return decodeFood(body, fdcID)
}

// cached 先查快取，未命中時呼叫上游並在成功後寫回
func (c *Client) cached(ctx context.Context, namespace, key string, call func() (*resty.Response, error), fields ...zap.Field) ([]byte, error) {
	if c.cache != nil {
		if body, err := c.cache.Get(ctx, namespace, key); err == nil {
			return body, nil
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
	}

	start := time.Now()
	resp, err := call()
	if err == nil {
		err = statusError(resp)
	}
	common.LogUpstreamCall(serviceName, time.Since(start), err, fields...)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	if c.cache != nil {
		if err := c.cache.Set(ctx, namespace, key, body); err != nil {
			common.LogWarn("寫入快取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
	}
	return body, nil
}

// statusError 將非 2xx 回應轉為錯誤
func statusError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	msg := fmt.Sprintf("USDA API returned status %d", resp.StatusCode())
	if body := strings.TrimSpace(resp.String()); body != "" {
		if len(body) > 200 {
			body = body[:200]
		}
		msg += ": " + body
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return common.ErrNotFound.WithMessage(msg)
	case http.StatusTooManyRequests:
		return common.ErrTooManyRequests.WithMessage(msg)
	default:
		return common.ErrUpstreamServiceFailure.WithMessage(msg)
	}
}
