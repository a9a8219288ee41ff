package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Router paths.
const (
	PathModels          = "/v1/models"
	PathChatCompletions = "/v1/chat/completions"
	PathHealth          = "/health"
)

// NewRouter wires the middleware chain and routes onto a fresh gin engine.
// cache may be nil to disable model list caching.
func NewRouter(h *PipeHandler, cache *ResponseCache, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware(logger))
	if cache != nil {
		router.Use(CacheMiddleware(cache, logger, PathModels, "/models"))
	}

	router.POST(PathChatCompletions, h.HandleChatCompletion)
	router.GET(PathModels, h.HandleModels)
	router.GET(PathHealth, h.HandleHealth)

	// Also support without /v1 prefix for compatibility
	router.POST("/chat/completions", h.HandleChatCompletion)
	router.GET("/models", h.HandleModels)

	return router
}
