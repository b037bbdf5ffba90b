package phe

import (
	"context"
	"errors"
	"net/http"

	corephe "pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/core/recipe"
	"pku-kitchen/internal/core/tracker"
	"pku-kitchen/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler PHE 分析處理程序
type Handler struct {
	analyzer       Analyzer
	recipes        RecipeGenerator
	daily          DailyTotals
	defaultSources []corephe.SourceType
}

// NewHandler 創建處理程序；recipes 為 nil 代表未啟用食譜生成
func NewHandler(analyzer Analyzer, recipes RecipeGenerator, daily DailyTotals, defaultSources []corephe.SourceType) *Handler {
	if len(defaultSources) == 0 {
		defaultSources = corephe.DefaultSourceTypes
	}
	return &Handler{
		analyzer:       analyzer,
		recipes:        recipes,
		daily:          daily,
		defaultSources: defaultSources,
	}
}

// RegisterRoutes 註冊 /phe 路由；analyzeMiddleware 只套用在會記錄餐點的 /analyze
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, analyzeMiddleware ...gin.HandlerFunc) {
	g := group.Group("/phe")
	g.POST("/analyze", append(analyzeMiddleware, h.HandleAnalyze)...)
	g.POST("/analyze-preview", h.HandleAnalyzePreview)
	g.POST("/recipe", h.HandleRecipe)
	g.GET("/daily-summary", h.HandleDailySummary)
	g.POST("/reset-day", h.HandleResetDay)
}

// HandleAnalyze 分析食材、生成食譜並記錄到當日累計
func (h *Handler) HandleAnalyze(c *gin.Context) {
	h.analyze(c, true)
}

// HandleAnalyzePreview 分析食材但不記錄
func (h *Handler) HandleAnalyzePreview(c *gin.Context) {
	h.analyze(c, false)
}

func (h *Handler) analyze(c *gin.Context, track bool) {
	requestID := getRequestID(c)

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		respondError(c, requestID, common.ErrInvalidInput.Wrap(err))
		return
	}

	names, err := corephe.ValidateIngredients(req.Ingredients)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	sources, err := parseDataTypes(req.DataTypes, h.defaultSources)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	common.LogInfo("開始分析食材",
		zap.String("request_id", requestID),
		zap.Strings("ingredients", names),
		zap.Bool("track", track),
	)

	summary, err := h.analyzer.Analyze(c.Request.Context(), names, sources)
	if err != nil {
		respondError(c, requestID, contextError(err))
		return
	}

	resp := AnalyzeResponse{
		RequestID:             requestID,
		MealType:              req.MealType,
		NutritionSummary:      summary.Ingredients,
		TotalPheMg:            summary.TotalPheMg,
		RangeBand:             summary.Band,
		EligibleIngredients:   summary.EligibleIngredients,
		NoEligibleIngredients: !summary.HasEligible(),
	}

	if h.wantRecipe(req.GenerateRecipe) {
		result, err := h.generateRecipe(c.Request.Context(), summary)
		if err != nil {
			common.LogWarn("食譜生成失敗", zap.String("request_id", requestID), zap.Error(err))
			body := common.NewErrorBody(err)
			resp.RecipeError = &body
		}
		resp.Recipe = result
	}

	if track {
		entry := tracker.MealEntry{
			MealType:    req.MealType,
			Ingredients: names,
			PheMg:       summary.TotalPheMg,
			Nutrition:   summary.Ingredients,
		}
		if resp.Recipe != nil {
			entry.Recipe = resp.Recipe.RecipeText
		}
		snapshot := h.daily.RecordMeal(entry)
		resp.Daily = &snapshot
		if resp.MealType == "" {
			resp.MealType = tracker.DefaultMealType
		}
	}

	c.JSON(http.StatusOK, resp)
}

// HandleRecipe 分析食材後僅以可用食材生成食譜
func (h *Handler) HandleRecipe(c *gin.Context) {
	requestID := getRequestID(c)

	if h.recipes == nil {
		respondError(c, requestID, common.ErrServiceUnavailable.WithMessage("recipe generation is not enabled"))
		return
	}

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, requestID, common.ErrInvalidInput.Wrap(err))
		return
	}
	names, err := corephe.ValidateIngredients(req.Ingredients)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	sources, err := parseDataTypes(req.DataTypes, h.defaultSources)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	summary, err := h.analyzer.Analyze(c.Request.Context(), names, sources)
	if err != nil {
		respondError(c, requestID, contextError(err))
		return
	}

	result, err := h.generateRecipe(c.Request.Context(), summary)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, RecipeResponse{
		RequestID:           requestID,
		Recipe:              result,
		NutritionSummary:    summary.Ingredients,
		EligibleIngredients: summary.EligibleIngredients,
	})
}

// HandleDailySummary 目前的當日累計
func (h *Handler) HandleDailySummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.daily.Snapshot())
}

// HandleResetDay 重設當日累計
func (h *Handler) HandleResetDay(c *gin.Context) {
	total := h.daily.Reset()
	common.LogInfo("Daily tracking reset", zap.String("request_id", getRequestID(c)))
	c.JSON(http.StatusOK, ResetResponse{
		Message:    "Daily tracking reset successfully",
		DailyPheMg: total,
		DailyMeals: []tracker.MealEntry{},
	})
}

func (h *Handler) wantRecipe(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return h.recipes != nil
}

// generateRecipe 沒有可用食材時跳過模型呼叫
func (h *Handler) generateRecipe(ctx context.Context, summary *corephe.MealSummary) (*recipe.Result, error) {
	if h.recipes == nil {
		return nil, common.ErrServiceUnavailable.WithMessage("recipe generation is not enabled")
	}
	if !summary.HasEligible() {
		return nil, common.ErrNoEligibleIngredients
	}
	return h.recipes.GenerateRecipe(ctx, summary.EligibleIngredients, summary.Ingredients)
}

// contextError 將 ctx 取消或逾時轉為對應的錯誤代碼
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrGatewayTimeout.Wrap(err)
	}
	if errors.Is(err, context.Canceled) {
		return common.ErrRequestTimeout.Wrap(err)
	}
	return err
}

func getRequestID(c *gin.Context) string {
	if id := requestid.Get(c); id != "" {
		return id
	}
	id := common.GenerateUUID()
	c.Header("X-Request-ID", id)
	return id
}

func respondError(c *gin.Context, requestID string, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", zap.String("request_id", requestID), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, common.NewErrorBody(err))
}
