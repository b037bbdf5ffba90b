package api

import (
	"fmt"
	"time"

	"pku-kitchen/internal/api/handlers/health"
	phehandler "pku-kitchen/internal/api/handlers/phe"
	"pku-kitchen/internal/api/middleware"
	aiservice "pku-kitchen/internal/core/ai/service"
	"pku-kitchen/internal/core/cache"
	"pku-kitchen/internal/core/phe"
	"pku-kitchen/internal/core/recipe"
	openrouter "pku-kitchen/internal/core/service"
	"pku-kitchen/internal/core/tracker"
	"pku-kitchen/internal/core/usda"
	"pku-kitchen/internal/infrastructure/config"
	"pku-kitchen/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 設置路由；store 為 nil 時不使用快取
func SetupRouter(cfg *config.Config, store cache.Store, daily *tracker.DailyTracker) (*gin.Engine, error) {
	if daily == nil {
		return nil, fmt.Errorf("daily tracker is required")
	}
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// FoodData Central 與分析流程
	fdc := usda.NewClient(cfg.USDA, store)
	pipeline := phe.NewPipeline(fdc, phe.PipelineOptions{
		MaxPages:          cfg.USDA.MaxPages,
		PageDelay:         cfg.USDA.PageDelay,
		Workers:           cfg.Pipeline.Workers,
		IngredientTimeout: cfg.Pipeline.IngredientTimeout,
	})

	// 食譜服務（選用）
	var recipes phehandler.RecipeGenerator
	if cfg.OpenRouter.Enabled {
		aiSvc := aiservice.NewService(openrouter.NewOpenRouterService(cfg.OpenRouter), store)
		recipes = recipe.NewRecipeService(aiSvc)
	}

	common.LogInfo("Services initialized",
		zap.Bool("cache_enabled", store != nil),
		zap.Bool("recipe_enabled", recipes != nil),
		zap.String("model", cfg.OpenRouter.Model),
		zap.Int("pipeline_workers", cfg.Pipeline.Workers),
		zap.Strings("data_types", cfg.USDA.DataTypes),
	)

	health.NewHandler(cfg.App.Version, store, recipes != nil).RegisterRoutes(router)

	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	pheHandler := phehandler.NewHandler(pipeline, recipes, daily, phe.ParseSourceTypes(cfg.USDA.DataTypes))
	pheHandler.RegisterRoutes(api, dedup.Middleware())

	common.LogInfo("Router setup completed successfully",
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)
	return router, nil
}
