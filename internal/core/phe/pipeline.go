package phe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pku-kitchen/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PipelineOptions 分析流程設定
type PipelineOptions struct {
	MaxPages          int
	PageDelay         time.Duration
	Workers           int
	IngredientTimeout time.Duration
}

// Pipeline 食材 PHE 分析流程
type Pipeline struct {
	resolver *Resolver
	detail   DetailService
	opts     PipelineOptions
}

// NewPipeline 創建分析流程
func NewPipeline(foods FoodDataService, opts PipelineOptions) *Pipeline {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		resolver: NewResolver(foods, opts.PageDelay),
		detail:   foods,
		opts:     opts,
	}
}

// ValidateIngredients 檢查食材清單，需在任何外部呼叫之前執行
func ValidateIngredients(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, common.ErrInvalidInput.WithMessage("no ingredients provided")
	}
	cleaned := make([]string, 0, len(names))
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, common.ErrInvalidInput.WithMessage(fmt.Sprintf("ingredient at index %d is empty", i))
		}
		cleaned = append(cleaned, name)
	}
	return cleaned, nil
}

// Analyze 依輸入順序分析每個食材並彙整成一餐摘要。
// 單一食材失敗只會標記在該食材結果上，不會中斷整批。ctx 逾時時已完成的結果保留，
// 其餘食材標記為 upstream_failure；只有 ctx 被取消（用戶端離開）才回傳錯誤。
func (p *Pipeline) Analyze(ctx context.Context, names []string, allowed []SourceType) (*MealSummary, error) {
	results := make([]IngredientResult, len(names))

	if p.opts.Workers <= 1 || len(names) <= 1 {
		for i, name := range names {
			if err := ctx.Err(); errors.Is(err, context.Canceled) {
				return nil, err
			}
			results[i] = p.runOne(ctx, name, allowed)
		}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Workers)
		for i, name := range names {
			g.Go(func() error {
				results[i] = p.runOne(gCtx, name, allowed)
				return nil
			})
		}
		_ = g.Wait()
	}

	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		common.LogWarn("Meal analysis deadline exceeded, returning partial results",
			zap.Int("ingredients", len(names)),
			zap.Error(err),
		)
	}

	summary := buildSummary(results)

	common.LogInfo("Meal analysis completed",
		zap.Int("ingredients", len(results)),
		zap.Float64("total_phe_mg", summary.TotalPheMg),
		zap.Strings("eligible", summary.EligibleIngredients),
		zap.String("band", string(summary.Band)),
	)
	return summary, nil
}

// runOne 期限已過時不再呼叫上游，直接標記為失敗
func (p *Pipeline) runOne(ctx context.Context, name string, allowed []SourceType) IngredientResult {
	if err := ctx.Err(); err != nil {
		return failed(IngredientResult{Ingredient: name}, StatusUpstreamFailure,
			common.ErrUpstreamServiceFailure.Wrap(fmt.Errorf("skipped %q: %w", name, err)))
	}
	return p.analyzeOne(ctx, name, allowed)
}

// buildSummary 由各食材結果建立摘要
func buildSummary(results []IngredientResult) *MealSummary {
	totals := Summarize(results)
	summary := &MealSummary{
		Ingredients:         results,
		TotalPheMg:          totals.TotalPheMg,
		EligibleIngredients: []string{},
		Band:                totals.Band,
	}
	for _, r := range results {
		if r.Tier.Eligible() {
			summary.EligibleIngredients = appendUnique(summary.EligibleIngredients, r.Ingredient)
		}
	}
	return summary
}

// analyzeOne 搜尋 → 選擇 → 取得詳細資料 → 擷取 → 分級
func (p *Pipeline) analyzeOne(ctx context.Context, name string, allowed []SourceType) IngredientResult {
	result := IngredientResult{Ingredient: name, Tier: TierUnknown}

	if p.opts.IngredientTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.IngredientTimeout)
		defer cancel()
	}

	candidates, err := p.resolver.Resolve(ctx, name, allowed, p.opts.MaxPages)
	if err != nil {
		return failed(result, StatusUpstreamFailure, err)
	}

	best, ok := SelectBest(candidates, name)
	if !ok {
		return failed(result, StatusNoCandidates,
			common.ErrNoCandidatesFound.WithMessage(fmt.Sprintf("no USDA matches for %q", name)))
	}
	logTopCandidates(name, candidates)

	result.FdcID = best.ID
	result.MatchedDescription = best.Description
	result.DataType = best.DataType

	record, err := p.detail.GetFood(ctx, best.ID)
	if err != nil {
		return failed(result, StatusUpstreamFailure, common.ErrUpstreamServiceFailure.Wrap(err))
	}

	nutrients, err := Extract(record)
	if err != nil {
		return failed(result, StatusNoNutrientData, err)
	}

	result.Nutrients = nutrients
	result.Tier = TierFor(nutrients.PheMg)
	result.Status = StatusOK
	if result.Tier == TierUnknown {
		result.Status = StatusNoPheData
		result.Error = "no nutrition information found"
	}
	return result
}

func failed(result IngredientResult, status IngredientStatus, err error) IngredientResult {
	if errors.Is(err, context.DeadlineExceeded) {
		status = StatusUpstreamFailure
	}
	result.Tier = TierUnknown
	result.Status = status
	result.Error = err.Error()

	common.LogWarn("Ingredient could not be classified",
		zap.String("ingredient", result.Ingredient),
		zap.String("status", string(status)),
		zap.Error(err),
	)
	return result
}

// logTopCandidates 僅供除錯：列出前五名候選
func logTopCandidates(query string, candidates []FoodCandidate) {
	ranked := RankCandidates(candidates, query)
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	top := make([]string, 0, len(ranked))
	for _, r := range ranked {
		top = append(top, fmt.Sprintf("%s | %s | FDC ID: %s | score %d",
			r.Candidate.Description, r.Candidate.DataType, r.Candidate.ID, r.Score))
	}
	common.LogDebug("Auto-selecting best USDA match",
		zap.String("ingredient", query),
		zap.Strings("top_candidates", top),
	)
}
