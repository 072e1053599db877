package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/compbot/internal/middleware"
	"github.com/xxxsen/compbot/internal/pkg/response"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Query     *QueryHandler
	Ingest    *IngestHandler
	Stats     *StatsHandler
	News      *NewsHandler
	Lark      *LarkHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/compliance/query", deps.Query.Query)
	api.GET("/index/stats", deps.Stats.Stats)
	api.GET("/scheduler/status", deps.Stats.Scheduler)
	api.POST("/lark/webhook", deps.Lark.Events)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/ingest", deps.Ingest.Upload)
	authGroup.POST("/ingest/reload", deps.Ingest.Reload)
	authGroup.DELETE("/index/documents/:name", deps.Ingest.Delete)
	authGroup.DELETE("/index", deps.Ingest.Clear)
	authGroup.POST("/news/run", deps.News.Run)
}
