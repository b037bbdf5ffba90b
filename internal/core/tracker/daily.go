package tracker

import (
	"sync"
	"time"

	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultMealType 未指定餐別時使用
const DefaultMealType = "Unspecified"

// MealEntry 一筆已記錄的餐點
type MealEntry struct {
	ID          string                 `json:"id"`
	MealType    string                 `json:"meal_type"`
	Ingredients []string               `json:"ingredients"`
	PheMg       float64                `json:"phe_amount"`
	Nutrition   []phe.IngredientResult `json:"nutrition_summary"`
	Recipe      string                 `json:"recipe,omitempty"`
	RecordedAt  time.Time              `json:"recorded_at"`
}

// Snapshot 當日累計的唯讀快照
type Snapshot struct {
	TotalPheMg    float64       `json:"daily_phe_total"`
	Meals         []MealEntry   `json:"daily_meals"`
	MealsCount    int           `json:"meals_count"`
	LimitExceeded bool          `json:"daily_limit_exceeded"`
	Band          phe.RangeBand `json:"range_band"`
}

// DailyTracker 當日 PHE 累計；所有操作以互斥鎖串行化
type DailyTracker struct {
	mu    sync.Mutex
	total float64
	meals []MealEntry
	now   func() time.Time
}

// NewDailyTracker 創建當日累計器
func NewDailyTracker() *DailyTracker {
	return &DailyTracker{now: time.Now}
}

// AddMeal 加入一餐並回傳新的當日總量
func (t *DailyTracker) AddMeal(entry MealEntry) float64 {
	return t.RecordMeal(entry).TotalPheMg
}

// RecordMeal 加入一餐並回傳加入當下的快照，兩者在同一把鎖內完成
func (t *DailyTracker) RecordMeal(entry MealEntry) Snapshot {
	if entry.MealType == "" {
		entry.MealType = DefaultMealType
	}
	if entry.ID == "" {
		entry.ID = common.GenerateUUID()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = t.now()
	}
	entry.Ingredients = append([]string(nil), entry.Ingredients...)

	t.mu.Lock()
	t.meals = append(t.meals, entry)
	t.total += entry.PheMg
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	common.LogInfo("已記錄餐點",
		zap.String("meal_type", entry.MealType),
		zap.Float64("phe_mg", entry.PheMg),
		zap.Float64("daily_total_mg", snapshot.TotalPheMg),
		zap.Int("meals", snapshot.MealsCount),
	)
	return snapshot
}

// Reset 清空當日紀錄，回傳 0
func (t *DailyTracker) Reset() float64 {
	t.mu.Lock()
	t.total = 0
	t.meals = nil
	t.mu.Unlock()

	common.LogInfo("Daily tracking reset")
	return 0
}

// Total 目前的當日總量
func (t *DailyTracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Snapshot 取得當日狀態的複本
func (t *DailyTracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// snapshotLocked 呼叫端須持有 t.mu
func (t *DailyTracker) snapshotLocked() Snapshot {
	meals := make([]MealEntry, len(t.meals))
	copy(meals, t.meals)
	return Snapshot{
		TotalPheMg:    t.total,
		Meals:         meals,
		MealsCount:    len(meals),
		LimitExceeded: t.total > phe.AdultMaxPheMg,
		Band:          phe.BandFor(t.total),
	}
}
