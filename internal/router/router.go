package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/handler"
	"github.com/stemsi/prepexam/internal/middleware"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Paper   *handler.PaperHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(tokens), limiter.Middleware())

	// ─── 1. Papers ─────────────────────────────────────────────────────
	papers := api.Group("/papers")
	{
		papers.GET("/:paper_id", middleware.CacheControl(60), handlers.Paper.GetPaper)
		papers.POST("/:paper_id/prefetch", handlers.Paper.PrefetchPaper)
	}

	// ─── 2. Attempts ───────────────────────────────────────────────────
	attempts := api.Group("/attempts")
	attempts.Use(middleware.NoStore())
	{
		attempts.POST("", handlers.Attempt.StartAttempt)
		attempts.GET("", handlers.Attempt.ListAttempts)
		attempts.GET("/:attempt_id", handlers.Attempt.GetAttempt)
		attempts.POST("/:attempt_id/answer", handlers.Attempt.SelectAnswer)
		attempts.POST("/:attempt_id/next", handlers.Attempt.NextQuestion)
		attempts.POST("/:attempt_id/previous", handlers.Attempt.PreviousQuestion)
		attempts.POST("/:attempt_id/jump", handlers.Attempt.JumpToQuestion)
		attempts.POST("/:attempt_id/mark", handlers.Attempt.ToggleMark)
		attempts.GET("/:attempt_id/questions/:index/answer", handlers.Attempt.RevealAnswer)
		attempts.POST("/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		attempts.GET("/:attempt_id/result", handlers.Attempt.GetResult)

		review := attempts.Group("/:attempt_id/review")
		{
			review.GET("", handlers.Attempt.GetReview)
			review.POST("/filter", handlers.Attempt.SetReviewFilter)
			review.POST("/next", handlers.Attempt.ReviewNext)
			review.POST("/previous", handlers.Attempt.ReviewPrevious)
			review.POST("/jump", handlers.Attempt.ReviewJump)
		}
	}

	// ─── 3. System ─────────────────────────────────────────────────────
	api.GET("/system/status", handlers.System.Status)

	// ─── 4. WebSocket (query token) ────────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(tokens))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}
