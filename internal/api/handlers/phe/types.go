package phe

import (
	"context"
	"strings"

	corephe "pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/core/recipe"
	"pku-kitchen/internal/core/tracker"
	"pku-kitchen/internal/pkg/common"
)

// Analyzer 食材 PHE 分析
type Analyzer interface {
	Analyze(ctx context.Context, names []string, allowed []corephe.SourceType) (*corephe.MealSummary, error)
}

// RecipeGenerator 食譜生成
type RecipeGenerator interface {
	GenerateRecipe(ctx context.Context, eligible []string, results []corephe.IngredientResult) (*recipe.Result, error)
}

// DailyTotals 當日累計
type DailyTotals interface {
	RecordMeal(entry tracker.MealEntry) tracker.Snapshot
	Reset() float64
	Snapshot() tracker.Snapshot
}

// AnalyzeRequest 分析請求
type AnalyzeRequest struct {
	Ingredients []string `json:"ingredients"`
	MealType    string   `json:"meal_type,omitempty"`
	// DataTypes sr_legacy、survey 或 both，預設使用設定檔
	DataTypes string `json:"data_types,omitempty"`
	// GenerateRecipe 未指定時，食譜服務可用就生成
	GenerateRecipe *bool `json:"generate_recipe,omitempty"`
}

// RecipeRequest 食譜請求
type RecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	DataTypes   string   `json:"data_types,omitempty"`
}

// AnalyzeResponse 分析回應
type AnalyzeResponse struct {
	RequestID             string                     `json:"request_id"`
	MealType              string                     `json:"meal_type,omitempty"`
	NutritionSummary      []corephe.IngredientResult `json:"nutrition_summary"`
	TotalPheMg            float64                    `json:"total_phe"`
	RangeBand             corephe.RangeBand          `json:"range_band"`
	EligibleIngredients   []string                   `json:"eligible_ingredients"`
	NoEligibleIngredients bool                       `json:"no_eligible_ingredients"`
	Recipe                *recipe.Result             `json:"recipe,omitempty"`
	RecipeError           *common.ErrorResponse      `json:"recipe_error,omitempty"`
	Daily                 *tracker.Snapshot          `json:"daily,omitempty"`
}

// RecipeResponse 食譜回應
type RecipeResponse struct {
	RequestID           string                     `json:"request_id"`
	Recipe              *recipe.Result             `json:"recipe"`
	NutritionSummary    []corephe.IngredientResult `json:"nutrition_summary"`
	EligibleIngredients []string                   `json:"eligible_ingredients"`
}

// ResetResponse 重設當日紀錄的回應
type ResetResponse struct {
	Message    string              `json:"message"`
	DailyPheMg float64             `json:"daily_phe_total"`
	DailyMeals []tracker.MealEntry `json:"daily_meals"`
}

// parseDataTypes 將請求的 data_types 轉為資料來源；空字串回傳 fallback
func parseDataTypes(value string, fallback []corephe.SourceType) ([]corephe.SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback, nil
	case "sr_legacy", "sr legacy", "1":
		return []corephe.SourceType{corephe.SourceSRLegacy}, nil
	case "survey", "survey_fndds", "survey (fndds)", "2":
		return []corephe.SourceType{corephe.SourceSurveyFNDDS}, nil
	case "both", "all", "3":
		return corephe.DefaultSourceTypes, nil
	default:
		return nil, common.ErrInvalidInput.WithMessage("data_types must be one of sr_legacy, survey, both")
	}
}
