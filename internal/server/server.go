// Package server exposes the bot's HTTP surface: the Webex webhook
// receiver and a health endpoint.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/collabtools/webex-ai-bot/internal/provider"
	"github.com/collabtools/webex-ai-bot/internal/webhook"
)

// EventHandler processes a validated webhook event.
type EventHandler interface {
	Handle(ctx context.Context, event *webhook.Event)
}

// Server wires the HTTP routes to the webhook handler and provider.
type Server struct {
	engine   *gin.Engine
	events   EventHandler
	provider provider.Provider
}

// New creates the HTTP server.
func New(events EventHandler, prov provider.Provider) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		events:   events,
		provider: prov,
	}
	s.engine.Use(gin.Recovery(), requestID())
	s.engine.POST("/webhook", s.handleWebhook)
	s.engine.GET("/health", s.handleHealth)
	return s
}

// Handler returns the underlying HTTP handler for serving and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestID tags each request with an X-Request-ID, generating one when
// the caller did not supply it.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Set("requestID", id)
		c.Next()
	}
}

// handleWebhook receives Webex webhook deliveries. It always responds 200:
// the upstream platform does not consume error bodies, and failures are a
// logging concern only.
func (s *Server) handleWebhook(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Error processing webhook")
		}
		c.Status(http.StatusOK)
	}()

	var event webhook.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		log.WithError(err).Warn("Failed to parse webhook payload")
		return
	}

	log.WithFields(log.Fields{
		"room":    event.Data.RoomID,
		"request": c.GetString("requestID"),
	}).Info("Webhook received")

	s.events.Handle(c.Request.Context(), &event)
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider bool   `json:"provider"`
}

// handleHealth reports whether the configured LLM backend is reachable.
func (s *Server) handleHealth(c *gin.Context) {
	healthy := s.provider.HealthCheck(c.Request.Context())

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, healthResponse{Status: status, Provider: healthy})
}
