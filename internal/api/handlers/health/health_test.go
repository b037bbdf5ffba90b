package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// MockPingStore implements cache.Store with a configurable Ping
type MockPingStore struct {
	cache.Store
	PingErr error
}

func (m *MockPingStore) Ping(ctx context.Context) error { return m.PingErr }

func setupRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthCheck(t *testing.T) {
	store := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	defer store.Close()
	router := setupRouter(NewHandler("1.2.3", store, false))

	w := get(router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != "1.2.3" || resp.Status != "ok" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.Features["cache"] || resp.Features["recipe"] {
		t.Errorf("unexpected features: %v", resp.Features)
	}
	if resp.Cache["backend"] != "memory" {
		t.Errorf("expected memory cache stats, got %v", resp.Cache)
	}
}

func TestReadinessCheck(t *testing.T) {
	t.Run("Given no cache When checking Then ready", func(t *testing.T) {
		if w := get(setupRouter(NewHandler("v", nil, false)), "/ready"); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})

	t.Run("Given an unreachable cache backend When checking Then 503", func(t *testing.T) {
		store := &MockPingStore{PingErr: errors.New("connection refused")}
		if w := get(setupRouter(NewHandler("v", store, false)), "/ready"); w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("Given a live process When probing Then alive", func(t *testing.T) {
		if w := get(setupRouter(NewHandler("v", nil, false)), "/live"); w.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", w.Code)
		}
	})
}
