package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/convictionlabs/conviction/config"
	"github.com/convictionlabs/conviction/controllers"
	"github.com/convictionlabs/conviction/feed"
	"github.com/convictionlabs/conviction/middleware"
	"github.com/convictionlabs/conviction/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, engine *feed.Service) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil && gl != nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}
	r.Use(middleware.RequestID())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(engine)
	thesisController := controllers.NewThesisController(engine)
	rationaleController := controllers.NewRationaleController(engine)
	blockController := controllers.NewBlockController(db, engine)
	notificationController := controllers.NewNotificationController(engine)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	posts := api.Group("/posts")
	posts.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	posts.POST("", postController.CreatePost)
	posts.GET("", postController.ListPosts)
	posts.GET("/:id", postController.GetPost)
	posts.PATCH("/:id", postController.UpdatePost)
	posts.DELETE("/:id", postController.DeletePost)
	posts.POST("/:id/reactions", postController.ReactToPost)
	posts.DELETE("/:id/reactions", postController.RemovePostReaction)

	theses := api.Group("/theses")
	theses.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	theses.POST("", thesisController.CreateThesis)
	theses.GET("", thesisController.ListTheses)
	theses.GET("/:id", thesisController.GetThesis)
	theses.PATCH("/:id", thesisController.UpdateThesis)
	theses.DELETE("/:id", thesisController.DeleteThesis)
	theses.POST("/:id/reactions", thesisController.ReactToThesis)
	theses.DELETE("/:id/reactions", thesisController.RemoveThesisReaction)

	rationales := api.Group("/rationales")
	rationales.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	rationales.POST("", rationaleController.SaveRationale)
	rationales.GET("", rationaleController.ListRationales)
	rationales.DELETE("/:id", rationaleController.DeleteRationale)

	blocks := api.Group("/blocks")
	blocks.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	blocks.POST("/:id", blockController.BlockUser)
	blocks.DELETE("/:id", blockController.UnblockUser)
	blocks.GET("", blockController.ListBlocks)

	notifications := api.Group("/notifications")
	notifications.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	notifications.GET("", notificationController.ListNotifications)
	notifications.PATCH("/:id/acknowledge", notificationController.AcknowledgeNotification)

	api.GET("/stats", statsController.GetStats)

	return r
}
