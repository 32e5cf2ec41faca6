// Package server exposes the conversation pipeline over HTTP: a direct
// interaction endpoint and the WhatsApp webhook.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/orchestrator"
	statex "github.com/botero-soto/sotobot/agent/state"
	"github.com/botero-soto/sotobot/pkg/evolution"
)

// Config controls the HTTP listener. Loaded under the SERVER prefix.
type Config struct {
	Port        int           `envconfig:"PORT" split_words:"true" default:"8080"`
	Debug       bool          `envconfig:"DEBUG" split_words:"true" default:"false"`
	TurnTimeout time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"90s"`
}

// Conversations is the slice of the orchestrator the transport needs.
type Conversations interface {
	HandleMessage(ctx context.Context, sessionID string, text string) (contractx.Outcome, error)
	Reset(ctx context.Context, sessionID string) error
}

type Server struct {
	cfg      Config
	convos   Conversations
	whatsapp *evolution.Client
	locks    *sessionLocks
	engine   *gin.Engine
	http     *http.Server
}

// New builds the router. whatsapp may be nil when no Evolution instance
// is configured; the webhook then only acknowledges deliveries.
func New(cfg Config, convos Conversations, whatsapp *evolution.Client) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		convos:   convos,
		whatsapp: whatsapp,
		locks:    newSessionLocks(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.handleHealth)
	engine.POST("/interaction", s.handleInteraction)
	engine.POST("/session/:id/reset", s.handleReset)
	engine.POST("/webhook/"+WebhookPath, s.handleWebhook)

	s.engine = engine
	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Run() error {
	log.Info().Int("port", s.cfg.Port).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type interactionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type interactionResponse struct {
	Reply    string              `json:"reply"`
	State    contractx.StateName `json:"state,omitempty"`
	ToolCall string              `json:"tool_call,omitempty"`
	Data     map[string]any      `json:"data,omitempty"`
}

func (s *Server) handleInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Key the lock on the same id the pipeline stores under.
	sessionID := strings.TrimSpace(req.SessionID)

	release := s.locks.acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.TurnTimeout)
	defer cancel()

	outcome, err := s.convos.HandleMessage(ctx, sessionID, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, orchestrator.ErrInvalidMessage) || errors.Is(err, orchestrator.ErrInvalidSession) {
			status = http.StatusBadRequest
		}
		log.Error().Err(err).Str("session", sessionID).Msg("interaction failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := interactionResponse{
		State:    outcome.NextState,
		ToolCall: outcome.ToolCall,
		Data:     outcome.Data,
	}
	for _, m := range outcome.Messages {
		if resp.Reply != "" {
			resp.Reply += "\n\n"
		}
		resp.Reply += m.Content
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReset(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.convos.Reset(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, statex.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		log.Error().Err(err).Str("session", sessionID).Msg("reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
