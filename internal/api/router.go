// Package api exposes form sessions over HTTP.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loan-intake/internal/common/logger"
)

// NewRouter registers every route on a fresh engine.
func NewRouter(h *Handlers, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log), CORS())

	router.GET("/live", h.Live)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sessions", h.CreateSession)
		v1.GET("/sessions/:id", h.GetSession)
		v1.DELETE("/sessions/:id", h.DeleteSession)
		v1.PATCH("/sessions/:id/fields", h.UpdateField)
		v1.POST("/sessions/:id/submit", h.Submit)

		v1.POST("/applications/validate", h.ValidateApplication)
	}

	return router
}
