package phe

import (
	"strings"

	"pku-kitchen/internal/pkg/common"
)

// PhePerProteinGram 每克蛋白質約含 50 mg PHE
const PhePerProteinGram = 50.0

// EstimatePheFromProtein 由蛋白質估算 PHE（mg）
func EstimatePheFromProtein(proteinG float64) float64 {
	return proteinG * PhePerProteinGram
}

// Extract 從食物營養素清單取出 PHE、蛋白質、熱量、碳水化合物
//
// 名稱以不分大小寫的子字串比對，順序為 phenylalanine → protein → energy(kcal) → carbohydrate。
// USDA 的 PHE 以克為單位，轉為毫克。沒有 PHE 但有蛋白質時以蛋白質估算。
// 沒有營養素清單時回傳 ErrNoNutrientData。
// 缺少 amount 的項目視為不存在而非 0，因此沒有數值的 PHE 列會改以蛋白質估算。
func Extract(record RawFoodRecord) (NutrientRecord, error) {
	var out NutrientRecord
	if !record.HasNutrients || len(record.Nutrients) == 0 {
		return out, common.ErrNoNutrientData.WithMessage("food " + record.FdcID + " has no nutrient list")
	}

	for _, n := range record.Nutrients {
		amount, ok := n.Amount.Get()
		if !ok {
			continue
		}
		name := strings.ToLower(n.Name)

		switch {
		case strings.Contains(name, "phenylalanine"):
			out.PheMg = Some(amount * 1000)
		case strings.Contains(name, "protein"):
			if !out.ProteinG.Present() {
				out.ProteinG = Some(amount)
			}
		case strings.Contains(name, "energy"):
			if strings.Contains(strings.ToLower(n.UnitName), "kcal") {
				out.EnergyKcal = Some(amount)
			}
		case strings.Contains(name, "carbohydrate"):
			out.CarbsG = Some(amount)
		}
	}

	if !out.PheMg.Present() {
		if protein, ok := out.ProteinG.Get(); ok {
			out.PheMg = Some(EstimatePheFromProtein(protein))
			out.PheEstimated = true
		}
	}

	return out, nil
}
