package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"pku-kitchen/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 在時間窗內拒絕內容相同的重複 POST，避免同一餐被重複記錄。
// 只有成功（2xx）的請求會留下紀錄，失敗的請求可立即重試。
type Deduplicator struct {
	window    time.Duration
	mu        sync.Mutex
	requests  map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewDeduplicator 創建去重器；過期紀錄在記錄時順帶清除
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		window:   window,
		requests: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Middleware 請求去重中間件
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogError("Failed to read request body", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusBadRequest, common.NewErrorBody(common.ErrInvalidRequest.Wrap(err)))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))

			hash := sha256.Sum256(body)
			fingerprint += ":" + hex.EncodeToString(hash[:])
		}

		// 先佔位，讓同時送達的相同請求也會被擋下
		if !d.reserve(fingerprint) {
			common.LogWarn("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrorResponse{
				Code:    common.ErrCodeTooManyRequests,
				Message: "Duplicate request",
			})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 300 {
			d.release(fingerprint)
		}
	}
}

// reserve 時間窗內已出現過時回傳 false
func (d *Deduplicator) reserve(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweepLocked(now)
	if last, exists := d.requests[fingerprint]; exists && now.Sub(last) <= d.window {
		return false
	}
	d.requests[fingerprint] = now
	return true
}

// release 移除未成功請求的紀錄
func (d *Deduplicator) release(fingerprint string) {
	d.mu.Lock()
	delete(d.requests, fingerprint)
	d.mu.Unlock()
}

// sweepLocked 每個時間窗最多清理一次過期紀錄；呼叫端須持有 d.mu
func (d *Deduplicator) sweepLocked(now time.Time) {
	if now.Sub(d.lastSweep) < d.window {
		return
	}
	for k, t := range d.requests {
		if now.Sub(t) > d.window {
			delete(d.requests, k)
		}
	}
	d.lastSweep = now
}
