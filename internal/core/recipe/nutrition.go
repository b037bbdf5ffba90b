package recipe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"pku-kitchen/internal/core/phe"
)

// foodKeywords 用來偵測模型自行加入的常見食材
var foodKeywords = map[string]struct{}{
	"beans": {}, "banana": {}, "milk": {}, "cheese": {}, "egg": {}, "oil": {},
	"bread": {}, "tofu": {}, "sugar": {}, "fruit": {}, "rice": {}, "spinach": {},
	"tomato": {}, "potato": {}, "butter": {}, "pasta": {}, "yogurt": {}, "juice": {},
}

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]+\b`)

// BuildNutritionContext 將每個食材的營養資訊整理成提示詞的參考段落
func BuildNutritionContext(results []phe.IngredientResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "%s:\n", titleCase(r.Ingredient))
		if v, ok := r.Nutrients.PheMg.Get(); ok {
			fmt.Fprintf(&b, "- PHE: %.1f mg/100g", v)
			if r.Nutrients.PheEstimated {
				b.WriteString(" (estimated from protein)")
			}
			b.WriteString("\n")
		}
		if v, ok := r.Nutrients.ProteinG.Get(); ok {
			fmt.Fprintf(&b, "- Protein: %gg\n", v)
		}
		if v, ok := r.Nutrients.CarbsG.Get(); ok {
			fmt.Fprintf(&b, "- Carbs: %gg\n", v)
		}
		if v, ok := r.Nutrients.EnergyKcal.Get(); ok {
			fmt.Fprintf(&b, "- Energy: %g kcal\n", v)
		}
		fmt.Fprintf(&b, "- Flag: %s", r.Tier)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FindAddedIngredients 找出模型輸出中提到、但不在原始清單裡的常見食材。
// 只檢查含有 "ingredient" 或以 "-" 開頭的行，結果已排序。
func FindAddedIngredients(output string, original []string) []string {
	known := make(map[string]struct{})
	for _, item := range original {
		item = strings.ToLower(strings.TrimSpace(item))
		known[item] = struct{}{}
		for _, w := range wordPattern.FindAllString(item, -1) {
			known[w] = struct{}{}
		}
	}

	found := make(map[string]struct{})
	for _, line := range strings.Split(strings.ToLower(output), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.Contains(trimmed, "ingredient") && !strings.HasPrefix(trimmed, "-") {
			continue
		}
		for _, token := range wordPattern.FindAllString(trimmed, -1) {
			if _, ok := foodKeywords[token]; !ok {
				continue
			}
			if _, ok := known[token]; ok {
				continue
			}
			found[token] = struct{}{}
		}
	}

	extra := make([]string, 0, len(found))
	for token := range found {
		extra = append(extra, token)
	}
	sort.Strings(extra)
	return extra
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
