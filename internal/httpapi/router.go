package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"todosync/internal/config"
)

const requestIDHeader = "X-Request-ID"

// Router builds the gin engine. hub serves the websocket endpoint.
func (h *Handler) Router(env string, hub http.Handler) *gin.Engine {
	if env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(requestLogger(h.logger))
	router.Use(gin.Recovery())

	api := router.Group("/api")

	lists := api.Group("/todolists")
	lists.GET("", h.HandleGetLists)
	lists.POST("", h.HandleCreateList)
	lists.GET("/:id", h.HandleGetList)
	lists.PUT("/:id", h.HandleUpdateList)
	lists.DELETE("/:id", h.HandleDeleteList)
	lists.GET("/:id/items", h.HandleGetItems)
	lists.POST("/:id/complete-all", h.HandleCompleteAll)

	items := api.Group("/todolistitems")
	items.POST("", h.HandleCreateItem)
	items.GET("/:id", h.HandleGetItem)
	items.PUT("/:id", h.HandleUpdateItem)
	items.DELETE("/:id", h.HandleDeleteItem)

	api.POST("/sync", h.HandleSync)

	if hub != nil {
		router.GET("/todohub", gin.WrapH(hub))
	}
	return router
}

// requestID reuses the caller's request id or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("request_id", c.GetString(requestIDHeader)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("handled request")
	}
}
