package recipe

import (
	"context"
	"fmt"
	"strings"

	aiservice "pku-kitchen/internal/core/ai/service"
	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
)

const systemPrompt = `You are a dietitian who writes recipes for people with phenylketonuria (PKU).
Only use the ingredients you are given. Prefer ingredients flagged Safe, use Caution ingredients sparingly,
and never add high-protein foods such as meat, fish, eggs, dairy, legumes or nuts.`

const promptTemplate = `Create one simple low-phenylalanine recipe.

Ingredients: %s

Nutrition reference (per 100g):
%s

Return only compact JSON in this shape:
{"dish_name":"...","dish_description":"...","servings":2,
"ingredients":[{"name":"...","amount":"...","unit":"..."}],
"steps":[{"step_number":1,"instruction":"...","time_minutes":5}],
"estimated_phe_mg":120,"notes":"..."}`

// AIService 食譜使用的文字生成服務
type AIService interface {
	ProcessRequest(ctx context.Context, systemPrompt, prompt string) (*aiservice.Response, error)
}

// RecipeService 低 PHE 食譜生成服務
type RecipeService struct {
	aiService AIService
}

// NewRecipeService 創建食譜生成服務
func NewRecipeService(aiService AIService) *RecipeService {
	return &RecipeService{aiService: aiService}
}

// GenerateRecipe 以可用食材與營養摘要生成食譜，並標記模型自行加入的食材
func (s *RecipeService) GenerateRecipe(ctx context.Context, eligible []string, results []phe.IngredientResult) (*Result, error) {
	if len(eligible) == 0 {
		return nil, common.ErrNoEligibleIngredients
	}

	prompt := BuildPrompt(eligible, results)
	resp, err := s.aiService.ProcessRequest(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("AI service error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, common.ErrAIServiceError.WithMessage("empty AI response")
	}

	content := strings.TrimSpace(resp.Content)
	structured := parseRecipe(content)
	scanned := content
	if structured != nil {
		scanned = structured.lines()
	}
	result := &Result{
		RecipeText:       content,
		Recipe:           structured,
		ExtraIngredients: FindAddedIngredients(scanned, eligible),
		CacheHit:         resp.CacheHit,
	}

	if len(result.ExtraIngredients) > 0 {
		common.LogWarn("LLM added ingredients not in list",
			zap.Strings("extra_ingredients", result.ExtraIngredients),
		)
	}
	common.LogInfo("食譜已生成",
		zap.Strings("ingredients", eligible),
		zap.Bool("structured", result.Recipe != nil),
		zap.Bool("cache_hit", resp.CacheHit),
	)
	return result, nil
}

// BuildPrompt 組合食譜提示詞；營養資訊只包含可用的食材
func BuildPrompt(eligible []string, results []phe.IngredientResult) string {
	allowed := make(map[string]struct{}, len(eligible))
	for _, name := range eligible {
		allowed[name] = struct{}{}
	}
	rows := make([]phe.IngredientResult, 0, len(eligible))
	for _, r := range results {
		if _, ok := allowed[r.Ingredient]; ok && r.Tier.Eligible() {
			rows = append(rows, r)
		}
	}
	return fmt.Sprintf(promptTemplate, common.StringSliceToString(eligible), BuildNutritionContext(rows))
}

// parseRecipe 從模型輸出擷取 JSON 區塊，無法解析時回傳 nil
func parseRecipe(content string) *Recipe {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil
	}

	var r Recipe
	if err := common.ParseJSON(content[start:end+1], &r); err != nil {
		common.LogDebug("AI 回應不是 JSON，改用純文字", zap.Error(err))
		return nil
	}
	if r.DishName == "" && len(r.Steps) == 0 {
		return nil
	}
	for i := range r.Steps {
		r.Steps[i].StepNumber = i + 1
	}
	return &r
}

// lines 結構化食譜轉成逐行文字，讓食材偵測能看到每個食材與步驟
func (r *Recipe) lines() string {
	var b strings.Builder
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&b, "- %s\n", ing.Name)
	}
	for _, step := range r.Steps {
		fmt.Fprintf(&b, "- %s\n", step.Instruction)
	}
	return b.String()
}
