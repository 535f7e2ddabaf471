// Package api exposes the HTTP surface of the server: the real-time endpoint
// and the read-only REST routes around it.
package api

import (
	"collab-lab/domain"
	"collab-lab/errors"
	"collab-lab/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handler struct {
	log     *slog.Logger
	service services.ICollaborationService
}

type profileRequest struct {
	Username string  `json:"username" binding:"required"`
	Avatar   *string `json:"avatar"`
}

type messagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	NextCursor *string              `json:"nextCursor"`
}

// NewRouter wires every route. socket is the WebSocket upgrade handler.
func NewRouter(log *slog.Logger, service services.ICollaborationService, socket gin.HandlerFunc,
	gatherer prometheus.Gatherer) *gin.Engine {
	h := &handler{log: log, service: service}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/ws", socket)

	v1 := router.Group("/api")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.listSessions)
			sessions.GET("/:id/messages", h.getMessages)
			sessions.GET("/:id/messages/search", h.searchMessages)
		}
		v1.PUT("/users/:id", h.putUser)
	}
	return router
}

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListSessions())
}

func (h *handler) getMessages(c *gin.Context) {
	var cursor *string
	if raw, ok := c.GetQuery("cursor"); ok {
		cursor = &raw
	}
	messages, next, err := h.service.GetMessages(c.Request.Context(), domain.SessionID(c.Param("id")), cursor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messagesResponse{Messages: messages, NextCursor: next})
}

func (h *handler) searchMessages(c *gin.Context) {
	messages, err := h.service.SearchMessages(c.Request.Context(), domain.SessionID(c.Param("id")), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *handler) putUser(c *gin.Context) {
	var body profileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile := domain.Profile{ID: domain.ParticipantID(c.Param("id")), Username: body.Username, Avatar: body.Avatar}
	if err := h.service.PutUser(c.Request.Context(), profile); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// fail answers a client error as is, anything else is logged and hidden.
func (h *handler) fail(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
