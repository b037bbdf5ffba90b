package phe

// MealTotals 一餐的 PHE 加總結果
type MealTotals struct {
	TotalPheMg float64               `json:"total_phe_mg"`
	Band       RangeBand             `json:"range_band"`
	Buckets    map[RiskTier][]string `json:"buckets"`
}

// BandFor 與成人每日建議範圍 [250, 500] mg 比較
func BandFor(totalPheMg float64) RangeBand {
	switch {
	case totalPheMg < AdultMinPheMg:
		return BandBelow
	case totalPheMg > AdultMaxPheMg:
		return BandAbove
	default:
		return BandWithin
	}
}

// Summarize 加總所有存在的 PHE 值並依風險等級分組
func Summarize(results []IngredientResult) MealTotals {
	totals := MealTotals{Buckets: make(map[RiskTier][]string)}
	for _, r := range results {
		if v, ok := r.Nutrients.PheMg.Get(); ok {
			totals.TotalPheMg += v
		}
		totals.Buckets[r.Tier] = append(totals.Buckets[r.Tier], r.Ingredient)
	}
	totals.Band = BandFor(totals.TotalPheMg)
	return totals
}
