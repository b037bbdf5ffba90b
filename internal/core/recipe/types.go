package recipe

// Result 食譜生成結果
type Result struct {
	RecipeText string `json:"recipe"`
	// Recipe 模型回傳可解析的 JSON 時才有值
	Recipe           *Recipe  `json:"structured_recipe,omitempty"`
	ExtraIngredients []string `json:"extra_ingredients"`
	CacheHit         bool     `json:"cache_hit"`
}

// Recipe 結構化食譜
type Recipe struct {
	DishName        string             `json:"dish_name"`
	DishDescription string             `json:"dish_description"`
	Servings        int                `json:"servings"`
	Ingredients     []RecipeIngredient `json:"ingredients"`
	Steps           []RecipeStep       `json:"steps"`
	EstimatedPheMg  *float64           `json:"estimated_phe_mg"`
	Notes           string             `json:"notes"`
}

// RecipeIngredient 食譜中的食材
type RecipeIngredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
}

// RecipeStep 食譜步驟
type RecipeStep struct {
	StepNumber  int    `json:"step_number"`
	Instruction string `json:"instruction"`
	TimeMinutes int    `json:"time_minutes"`
}
