package phe

import (
	"context"
	"strings"
)

// SourceType FoodData Central 的資料來源類型
type SourceType string

const (
	SourceSRLegacy    SourceType = "SR_LEGACY"
	SourceSurveyFNDDS SourceType = "SURVEY_FNDDS"
	SourceOther       SourceType = "OTHER"
)

// DefaultSourceTypes 未指定時使用的資料來源（SR Legacy + Survey）
var DefaultSourceTypes = []SourceType{SourceSRLegacy, SourceSurveyFNDDS}

// ParseSourceType 將 USDA 的 dataType 字串（不分大小寫）轉為 SourceType
func ParseSourceType(dataType string) SourceType {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "sr legacy", "sr_legacy":
		return SourceSRLegacy
	case "survey (fndds)", "survey_fndds", "survey":
		return SourceSurveyFNDDS
	default:
		return SourceOther
	}
}

// ParseSourceTypes 轉換設定檔中的資料來源清單，忽略無法辨識的項目
func ParseSourceTypes(dataTypes []string) []SourceType {
	var out []SourceType
	for _, dt := range dataTypes {
		if st := ParseSourceType(dt); st != SourceOther {
			out = appendUnique(out, st)
		}
	}
	return out
}

// FoodCandidate 搜尋結果中的單一候選食物
type FoodCandidate struct {
	ID          string     `json:"fdc_id"`
	Description string     `json:"description"`
	SourceType  SourceType `json:"source_type"`
	// DataType 上游原始的 dataType 字串
	DataType string `json:"data_type"`
}

// RawNutrient 經過邊界驗證後的單筆營養素資料
type RawNutrient struct {
	Name     string
	UnitName string
	Amount   Optional[float64]
}

// RawFoodRecord 食物詳細資料；HasNutrients 為 false 代表上游沒有營養素清單
type RawFoodRecord struct {
	FdcID        string
	Description  string
	DataType     string
	HasNutrients bool
	Nutrients    []RawNutrient
}

// NutrientRecord 標準化的營養資訊（每 100g）
type NutrientRecord struct {
	PheMg        Optional[float64] `json:"phe"`
	ProteinG     Optional[float64] `json:"protein"`
	EnergyKcal   Optional[float64] `json:"energy"`
	CarbsG       Optional[float64] `json:"carbs"`
	PheEstimated bool              `json:"phe_estimated"`
}

// RiskTier PHE 風險等級
type RiskTier string

const (
	TierSafe    RiskTier = "Safe"
	TierCaution RiskTier = "Caution"
	TierAvoid   RiskTier = "Avoid"
	TierUnknown RiskTier = "Unknown"
)

// Eligible Safe 與 Caution 可用於食譜生成
func (t RiskTier) Eligible() bool {
	return t == TierSafe || t == TierCaution
}

// IngredientStatus 每個食材的處理結果標記
type IngredientStatus string

const (
	StatusOK              IngredientStatus = "ok"
	StatusNoCandidates    IngredientStatus = "no_candidates"
	StatusNoNutrientData  IngredientStatus = "no_nutrient_data"
	StatusUpstreamFailure IngredientStatus = "upstream_failure"
	StatusNoPheData       IngredientStatus = "no_phe_data"
)

// IngredientResult 單一食材的分析結果
type IngredientResult struct {
	Ingredient         string           `json:"ingredient"`
	FdcID              string           `json:"fdc_id,omitempty"`
	MatchedDescription string           `json:"matched_description,omitempty"`
	DataType           string           `json:"data_type,omitempty"`
	Nutrients          NutrientRecord   `json:"nutrients"`
	Tier               RiskTier         `json:"flag"`
	Status             IngredientStatus `json:"status"`
	Error              string           `json:"error,omitempty"`
}

// RangeBand 與成人每日建議範圍比較的結果
type RangeBand string

const (
	BandBelow  RangeBand = "BelowRange"
	BandWithin RangeBand = "WithinRange"
	BandAbove  RangeBand = "AboveRange"
)

// MealSummary 一餐的分析摘要
type MealSummary struct {
	Ingredients         []IngredientResult `json:"ingredients"`
	TotalPheMg          float64            `json:"total_phe_mg"`
	EligibleIngredients []string           `json:"eligible_ingredients"`
	Band                RangeBand          `json:"range_band"`
}

// HasEligible 是否有可用於食譜的食材
func (m *MealSummary) HasEligible() bool {
	return len(m.EligibleIngredients) > 0
}

// SearchService 食物搜尋服務
type SearchService interface {
	SearchFoods(ctx context.Context, query string, page, pageSize int) ([]FoodCandidate, error)
}

// DetailService 食物詳細資料服務
type DetailService interface {
	GetFood(ctx context.Context, fdcID string) (RawFoodRecord, error)
}

// FoodDataService 同時提供搜尋與詳細資料
type FoodDataService interface {
	SearchService
	DetailService
}

func appendUnique[T comparable](list []T, v T) []T {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
