package phe

import (
	"context"
	"errors"
	"sync"
	"testing"
)

var ErrMockUpstream = errors.New("upstream unavailable")

// MockFoodData implements FoodDataService for testing
type MockFoodData struct {
	SearchFunc func(ctx context.Context, query string, page, pageSize int) ([]FoodCandidate, error)
	GetFunc    func(ctx context.Context, fdcID string) (RawFoodRecord, error)

	mu          sync.Mutex
	SearchCalls []searchCall
	GetCalls    []string
}

type searchCall struct {
	Query    string
	Page     int
	PageSize int
}

func (m *MockFoodData) SearchFoods(ctx context.Context, query string, page, pageSize int) ([]FoodCandidate, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, searchCall{Query: query, Page: page, PageSize: pageSize})
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, page, pageSize)
	}
	return nil, nil
}

func (m *MockFoodData) GetFood(ctx context.Context, fdcID string) (RawFoodRecord, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, fdcID)
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, fdcID)
	}
	return RawFoodRecord{}, ErrMockUpstream
}

func (m *MockFoodData) searchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SearchCalls)
}

func candidate(id, desc, dataType string) FoodCandidate {
	return FoodCandidate{ID: id, Description: desc, DataType: dataType, SourceType: ParseSourceType(dataType)}
}

func nutrient(name, unit string, amount float64) RawNutrient {
	return RawNutrient{Name: name, UnitName: unit, Amount: Some(amount)}
}

func record(id string, nutrients ...RawNutrient) RawFoodRecord {
	return RawFoodRecord{FdcID: id, HasNutrients: true, Nutrients: nutrients}
}

func optionalEquals(t *testing.T, name string, got Optional[float64], want float64) {
	t.Helper()
	v, ok := got.Get()
	if !ok {
		t.Errorf("%s: expected %.2f, got absent", name, want)
		return
	}
	if diff := v - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("%s: expected %.4f, got %.4f", name, want, v)
	}
}
