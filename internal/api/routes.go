package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/api/middleware"
)

// RegisterRoutes 注册 /api 与 /ws 路由；feed 为 nil 时不注册实时推送
func RegisterRoutes(r *gin.Engine, h *Handler, feed http.Handler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r.Use(middleware.RequestTracing(), middleware.CORS())

	auth := middleware.APIKeyAuth(authCfg, logger)
	if authCfg.Enabled {
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api := r.Group("/api", auth)
	api.GET("/fields", h.Fields)
	api.POST("/decode", h.Decode)
	api.GET("/decoder/state", h.DecoderState)

	api.GET("/devices", h.ListDevices)
	api.GET("/devices/:id/:channel", h.GetDevice)

	api.GET("/readings", h.ListReadings)
	api.GET("/readings/latest", h.LatestReadings)
	api.GET("/readings/latest/:id/:channel", h.LatestReading)

	endpoints := 8
	if feed != nil {
		r.GET("/ws/readings", auth, gin.WrapH(feed))
		endpoints++
	}
	logger.Info("api routes registered", zap.Int("endpoints", endpoints))
}
