package usda

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/pkg/common"
)

// fdcID 接受數字或字串形式的 fdcId
type fdcID string

func (id *fdcID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = fdcID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid fdcId %s: %w", data, err)
	}
	*id = fdcID(n.String())
	return nil
}

// searchResponse /foods/search 回應中需要的欄位
type searchResponse struct {
	Foods       []searchFood `json:"foods"`
	TotalHits   int          `json:"totalHits"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
}

type searchFood struct {
	FdcID       fdcID  `json:"fdcId"`
	Description string `json:"description"`
	DataType    string `json:"dataType"`
}

// foodResponse /food/{id} 回應；FoodNutrients 為 nil 代表欄位不存在
type foodResponse struct {
	FdcID         fdcID          `json:"fdcId"`
	Description   string         `json:"description"`
	DataType      string         `json:"dataType"`
	FoodNutrients []foodNutrient `json:"foodNutrients"`
}

// foodNutrient 同時支援詳細資料格式（nutrient + amount）
// 與搜尋摘要格式（nutrientName + unitName + value）
type foodNutrient struct {
	Nutrient *struct {
		Name     string `json:"name"`
		UnitName string `json:"unitName"`
	} `json:"nutrient"`
	Amount *json.Number `json:"amount"`

	NutrientName string       `json:"nutrientName"`
	UnitName     string       `json:"unitName"`
	Value        *json.Number `json:"value"`
}

// decodeSearch 驗證搜尋回應並轉為候選清單，缺少 fdcId 的項目會被丟棄
func decodeSearch(body []byte) ([]phe.FoodCandidate, error) {
	var resp searchResponse
	if err := common.ParseJSONBytes(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	candidates := make([]phe.FoodCandidate, 0, len(resp.Foods))
	for _, f := range resp.Foods {
		if f.FdcID == "" {
			continue
		}
		candidates = append(candidates, phe.FoodCandidate{
			ID:          string(f.FdcID),
			Description: strings.TrimSpace(f.Description),
			SourceType:  phe.ParseSourceType(f.DataType),
			DataType:    f.DataType,
		})
	}
	return candidates, nil
}

// decodeFood 驗證食物詳細資料並轉為 RawFoodRecord
func decodeFood(body []byte, requestedID string) (phe.RawFoodRecord, error) {
	var resp foodResponse
	if err := common.ParseJSONBytes(body, &resp); err != nil {
		return phe.RawFoodRecord{}, fmt.Errorf("decode food response: %w", err)
	}

	record := phe.RawFoodRecord{
		FdcID:        string(resp.FdcID),
		Description:  resp.Description,
		DataType:     resp.DataType,
		HasNutrients: len(resp.FoodNutrients) > 0,
	}
	if record.FdcID == "" {
		record.FdcID = requestedID
	}

	for _, n := range resp.FoodNutrients {
		raw, ok := n.toRaw()
		if !ok {
			continue
		}
		record.Nutrients = append(record.Nutrients, raw)
	}
	return record, nil
}

// toRaw 沒有名稱的項目回傳 false；數值無法解析時視為不存在
func (n foodNutrient) toRaw() (phe.RawNutrient, bool) {
	raw := phe.RawNutrient{Name: n.NutrientName, UnitName: n.UnitName}
	amount := n.Value
	if n.Nutrient != nil {
		raw.Name = n.Nutrient.Name
		raw.UnitName = n.Nutrient.UnitName
		amount = n.Amount
	}
	if raw.Name == "" {
		return phe.RawNutrient{}, false
	}

	if amount != nil {
		if v, err := amount.Float64(); err == nil {
			raw.Amount = phe.Some(v)
		}
	}
	return raw, true
}
