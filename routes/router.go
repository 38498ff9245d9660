package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/config"
	"github.com/inkpress/inkpress/controllers"
	"github.com/inkpress/inkpress/middleware"
	"github.com/inkpress/inkpress/store"
	"github.com/inkpress/inkpress/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(s *store.Store) *gin.Engine {
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
	// access log goes to its own rolling file; without one it shares the app logger
	gl := utils.L()
	if cfg.GinPath != "" {
		gl = utils.NewRollingFileLogger(cfg, cfg.GinPath)
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin; echo the caller instead
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, "success", gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(s)
	postController := controllers.NewPostController(s)
	commentController := controllers.NewCommentController(s)
	categoryController := controllers.NewCategoryController(s)
	userController := controllers.NewUserController(s)
	statsController := controllers.NewStatsController(s)
	configController := controllers.NewConfigController()

	authRequired := middleware.AuthRequired()
	postOwner := middleware.Pipeline(middleware.Authenticate(), middleware.PostOwner(s.Posts))

	api := r.Group("/api")
	api.GET("/stats", statsController.GetStats)
	api.GET("/config", configController.GetSiteConfig)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/:id", postController.GetPost)
	postsGroup.POST("", authRequired, postController.CreatePost)
	postsGroup.PUT("/:id", postOwner, postController.UpdatePost)
	postsGroup.DELETE("/:id", postOwner, postController.DeletePost)

	commentsGroup := api.Group("/comments")
	commentsGroup.GET("/:postId", commentController.ListComments)
	commentsGroup.POST("", authRequired, commentController.AddComment)
	commentsGroup.DELETE("/:id", authRequired, commentController.DeleteComment)

	categoriesGroup := api.Group("/categories")
	categoriesGroup.GET("", categoryController.ListCategories)
	categoriesGroup.POST("", authRequired, categoryController.CreateCategory)

	usersGroup := api.Group("/users")
	usersGroup.Use(authRequired)
	usersGroup.PATCH("/update", userController.UpdateProfile)
	usersGroup.PATCH("/change-password", userController.ChangePassword)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "Route not found")
	})

	return r
}
