package usda

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/infrastructure/config"
	"pku-kitchen/internal/pkg/common"
)

const searchFixture = `{
  "totalHits": 3,
  "currentPage": 1,
  "totalPages": 1,
  "foods": [
    {"fdcId": 168462, "description": "Spinach, raw", "dataType": "SR Legacy"},
    {"description": "Spinach, no id", "dataType": "SR Legacy"},
    {"fdcId": "2345", "description": "Spinach, cooked", "dataType": "Survey (FNDDS)"}
  ]
}`

const foodFixture = `{
  "fdcId": 168462,
  "description": "Spinach, raw",
  "dataType": "SR Legacy",
  "foodNutrients": [
    {"nutrient": {"name": "Protein", "unitName": "g"}, "amount": 2.86},
    {"nutrient": {"name": "Phenylalanine", "unitName": "g"}, "amount": 0.129},
    {"nutrient": {"name": "Energy", "unitName": "kcal"}, "amount": 23},
    {"nutrient": {"name": "Fiber", "unitName": "g"}},
    {"nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 3.63}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, store cache.Store) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.USDAConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, store)
}

func TestClient_SearchFoods(t *testing.T) {
	t.Run("Given a search page When querying Then candidates are decoded and id-less entries dropped", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/foods/search" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			q := r.URL.Query()
			if q.Get("query") != "spinach" || q.Get("pageSize") != "100" || q.Get("pageNumber") != "2" || q.Get("api_key") != "test-key" {
				t.Errorf("unexpected query: %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(searchFixture))
		}, nil)

		got, err := client.SearchFoods(context.Background(), "spinach", 2, 100)
		if err != nil {
			t.Fatalf("SearchFoods failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(got))
		}
		if got[0].ID != "168462" || got[0].SourceType != phe.SourceSRLegacy || got[0].DataType != "SR Legacy" {
			t.Errorf("unexpected first candidate: %+v", got[0])
		}
		if got[1].ID != "2345" || got[1].SourceType != phe.SourceSurveyFNDDS {
			t.Errorf("unexpected second candidate: %+v", got[1])
		}
	})

	t.Run("Given an upstream 500 When querying Then UpstreamServiceFailure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, nil)

		_, err := client.SearchFoods(context.Background(), "rice", 1, 100)
		if !errors.Is(err, common.ErrUpstreamServiceFailure) {
			t.Errorf("expected upstream failure, got %v", err)
		}
	})

	t.Run("Given a rate limited key When querying Then TooManyRequests", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, nil)

		_, err := client.SearchFoods(context.Background(), "rice", 1, 100)
		if !errors.Is(err, common.ErrTooManyRequests) {
			t.Errorf("expected too many requests, got %v", err)
		}
	})

	t.Run("Given malformed JSON When querying Then a decode error is returned", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"foods": [`))
		}, nil)

		if _, err := client.SearchFoods(context.Background(), "rice", 1, 100); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("Given a cache When querying twice Then upstream is called once", func(t *testing.T) {
		var calls atomic.Int32
		store := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
		defer store.Close()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(searchFixture))
		}, store)

		for i := 0; i < 2; i++ {
			got, err := client.SearchFoods(context.Background(), "Spinach", 1, 100)
			if err != nil || len(got) != 2 {
				t.Fatalf("call %d: unexpected result %v / %v", i, got, err)
			}
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 upstream call, got %d", calls.Load())
		}
	})
}

func TestClient_GetFood(t *testing.T) {
	t.Run("Given both nutrient shapes When fetching Then they are normalised", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/food/168462" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(foodFixture))
		}, nil)

		rec, err := client.GetFood(context.Background(), "168462")
		if err != nil {
			t.Fatalf("GetFood failed: %v", err)
		}
		if rec.FdcID != "168462" || !rec.HasNutrients || len(rec.Nutrients) != 5 {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.Nutrients[3].Amount.Present() {
			t.Error("expected fiber without amount to be absent")
		}
		carbs := rec.Nutrients[4]
		if v, ok := carbs.Amount.Get(); carbs.Name != "Carbohydrate, by difference" || !ok || v != 3.63 {
			t.Errorf("unexpected flat nutrient: %+v", carbs)
		}

		nutrients, err := phe.Extract(rec)
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if v, _ := nutrients.PheMg.Get(); v < 128.999 || v > 129.001 {
			t.Errorf("expected 129 mg PHE, got %v", v)
		}
	})

	t.Run("Given a record without foodNutrients When fetching Then HasNutrients is false", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"description": "Mystery food"}`))
		}, nil)

		rec, err := client.GetFood(context.Background(), "42")
		if err != nil {
			t.Fatalf("GetFood failed: %v", err)
		}
		if rec.HasNutrients || rec.FdcID != "42" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if _, err := phe.Extract(rec); !errors.Is(err, common.ErrNoNutrientData) {
			t.Errorf("expected ErrNoNutrientData, got %v", err)
		}
	})

	t.Run("Given an unknown id When fetching Then NotFound", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, nil)

		if _, err := client.GetFood(context.Background(), "0"); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("Given a blank id When fetching Then InvalidInput without a request", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}, nil)

		if _, err := client.GetFood(context.Background(), " "); !errors.Is(err, common.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("Given a slow upstream When the context expires Then the call fails", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := client.GetFood(ctx, "1"); err == nil {
			t.Error("expected timeout error")
		}
	})
}
