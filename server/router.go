package server

import (
	"time"

	httpHandler "socialhub/interfaces/http"
	"socialhub/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitiateRouter(
	postHandler httpHandler.IPostHandler,
	ruleHandler httpHandler.IRuleHandler,
	statusHandler httpHandler.IStatusHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:4200", "http://localhost:4201"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", statusHandler.Healthz)

	api := router.Group("api")
	api.Use(middleware.Auth())

	api.GET("/platforms", statusHandler.Platforms)
	api.POST("/scheduler/pass", statusHandler.TriggerPass)

	posts := api.Group("/posts")
	{
		posts.POST("", postHandler.Create)
		posts.GET("", postHandler.List)
		posts.GET("/:postId", postHandler.Get)
		posts.POST("/:postId/cancel", postHandler.Cancel)
		posts.POST("/:postId/retry", postHandler.Retry)
		posts.GET("/:postId/attempts", postHandler.Attempts)
	}

	rules := api.Group("/rules")
	{
		rules.GET("", ruleHandler.List)
		rules.GET("/:ruleId", ruleHandler.Get)
		rules.POST("/:ruleId/activate", ruleHandler.Activate)
		rules.POST("/:ruleId/deactivate", ruleHandler.Deactivate)
		rules.GET("/:ruleId/attempts", ruleHandler.Attempts)
	}

	return router
}
