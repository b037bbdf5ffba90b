package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	phehandler "pku-kitchen/internal/api/handlers/phe"
	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/core/tracker"
	"pku-kitchen/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
)

// fakeFDC serves canned FoodData Central responses
func fakeFDC(t *testing.T, searches *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/foods/search":
			searches.Add(1)
			switch r.URL.Query().Get("query") {
			case "rice":
				w.Write([]byte(`{"foods":[
					{"fdcId": 1, "description": "Rice, white, cooked", "dataType": "Survey (FNDDS)"},
					{"fdcId": 2, "description": "Rice, white, raw", "dataType": "SR Legacy"}]}`))
			case "apple":
				w.Write([]byte(`{"foods":[{"fdcId": 3, "description": "Apples, raw, with skin", "dataType": "SR Legacy"}]}`))
			default:
				w.Write([]byte(`{"foods":[{"fdcId": 9, "description": "Cheese puffs", "dataType": "Branded"}]}`))
			}
		case strings.HasPrefix(r.URL.Path, "/food/2"):
			w.Write([]byte(`{"fdcId": 2, "foodNutrients": [{"nutrient": {"name": "Phenylalanine", "unitName": "g"}, "amount": 0.35}]}`))
		case strings.HasPrefix(r.URL.Path, "/food/3"):
			w.Write([]byte(`{"fdcId": 3, "foodNutrients": [{"nutrient": {"name": "Protein", "unitName": "g"}, "amount": 0.26}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		App:    config.AppConfig{Debug: true, Version: "test"},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		USDA: config.USDAConfig{
			APIKey:    "DEMO_KEY",
			BaseURL:   baseURL,
			Timeout:   2 * time.Second,
			MaxPages:  2,
			DataTypes: []string{"SR Legacy", "Survey (FNDDS)"},
		},
		Pipeline:    config.PipelineConfig{Workers: 2, IngredientTimeout: 2 * time.Second},
		Cache:       config.CacheConfig{Enabled: true, MaxSize: 100, TTL: time.Minute},
		DedupWindow: time.Minute,
	}
}

func TestSetupRouter_AnalyzeFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var searches atomic.Int32
	server := fakeFDC(t, &searches)
	cfg := testConfig(server.URL)

	store := cache.NewManager(cfg.Cache)
	defer store.Close()
	daily := tracker.NewDailyTracker()

	router, err := SetupRouter(cfg, store, daily)
	if err != nil {
		t.Fatalf("SetupRouter failed: %v", err)
	}

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := post("/api/v1/phe/analyze", `{"ingredients": ["rice", "apple", "cheese"], "meal_type": "Lunch"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	var resp phehandler.AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := resp.NutritionSummary
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	if got[0].FdcID != "2" || got[0].Tier != phe.TierAvoid {
		t.Errorf("expected raw SR Legacy rice as Avoid, got %+v", got[0])
	}
	if got[1].Tier != phe.TierSafe || !got[1].Nutrients.PheEstimated {
		t.Errorf("expected estimated Safe apple, got %+v", got[1])
	}
	if got[2].Tier != phe.TierUnknown || got[2].Status != phe.StatusNoCandidates {
		t.Errorf("expected unmatched cheese, got %+v", got[2])
	}
	if resp.TotalPheMg < 362.99 || resp.TotalPheMg > 363.01 {
		t.Errorf("expected 363 mg, got %v", resp.TotalPheMg)
	}
	if len(resp.EligibleIngredients) != 1 || resp.EligibleIngredients[0] != "apple" {
		t.Errorf("unexpected eligible list: %v", resp.EligibleIngredients)
	}
	if resp.Recipe != nil || resp.RecipeError != nil {
		t.Errorf("recipe generation is disabled, got %+v / %+v", resp.Recipe, resp.RecipeError)
	}
	if daily.Total() < 362.99 {
		t.Errorf("expected meal tracked, got %v", daily.Total())
	}

	// 重複送出會被去重，不會重複記錄
	if w := post("/api/v1/phe/analyze", `{"ingredients": ["rice", "apple", "cheese"], "meal_type": "Lunch"}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected duplicate rejected, got %d", w.Code)
	}
	if daily.Snapshot().MealsCount != 1 {
		t.Errorf("expected a single tracked meal, got %d", daily.Snapshot().MealsCount)
	}

	// preview 走快取，不再呼叫搜尋
	before := searches.Load()
	if w := post("/api/v1/phe/analyze-preview", `{"ingredients": ["rice", "apple"]}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if searches.Load() != before {
		t.Errorf("expected cached searches, got %d new calls", searches.Load()-before)
	}
}

func TestSetupRouter_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, err := SetupRouter(testConfig("http://127.0.0.1:0"), nil, tracker.NewDailyTracker())
	if err != nil {
		t.Fatalf("SetupRouter failed: %v", err)
	}

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestSetupRouter_RequiresTracker(t *testing.T) {
	if _, err := SetupRouter(testConfig(""), nil, nil); err == nil {
		t.Error("expected error without a daily tracker")
	}
}
