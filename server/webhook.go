package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// WebhookPath is the unguessable suffix the Evolution API instance is
// configured to deliver to. It acts as the shared secret for inbound
// deliveries.
const WebhookPath = "8dc6d878-da30-4102-b6b0-4faed52ba983"

// evolutionEvent is the subset of the Evolution API delivery payload the
// webhook consumes.
type evolutionEvent struct {
	Event string `json:"event"`
	Data  struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
	} `json:"data"`
}

func (e evolutionEvent) text() string {
	if t := strings.TrimSpace(e.Data.Message.Conversation); t != "" {
		return t
	}
	return strings.TrimSpace(e.Data.Message.ExtendedTextMessage.Text)
}

// handleWebhook acknowledges the delivery immediately and processes the
// turn in the background; Evolution retries slow webhooks, and a model
// turn is always slow.
func (s *Server) handleWebhook(c *gin.Context) {
	var event evolutionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if event.Event != "messages.upsert" || event.Data.Key.FromMe {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	sessionID := strings.TrimSpace(event.Data.Key.RemoteJID)
	text := event.text()
	if sessionID == "" || text == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	go s.processInbound(sessionID, text)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (s *Server) processInbound(sessionID, text string) {
	release := s.locks.acquire(sessionID)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.TurnTimeout)
	defer cancel()

	outcome, err := s.convos.HandleMessage(ctx, sessionID, text)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("webhook turn failed")
		return
	}

	if s.whatsapp == nil {
		return
	}
	number := strings.TrimSuffix(sessionID, "@s.whatsapp.net")
	for _, m := range outcome.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if err := s.whatsapp.SendText(ctx, number, m.Content); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("outbound delivery failed")
			return
		}
	}
}
