package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	relay   *core.Relay
	history store.MessageStore
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. history may be nil.
func NewAPIHandlers(relay *core.Relay, history store.MessageStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		relay:   relay,
		history: history,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check body.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// MessageResponse represents a stored message in API responses.
type MessageResponse struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Sender    proto.User  `json:"sender"`
	Recipient *proto.User `json:"recipient,omitempty"`
	Text      string      `json:"text"`
	TS        int64       `json:"ts"`
}

// Health reports liveness and the number of live sessions.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Connections: h.relay.Manager.Connections()})
}

// Users lists the online users.
// GET /api/users
func (h *APIHandlers) Users(c *gin.Context) {
	c.JSON(http.StatusOK, usersToProto(h.relay.Users()))
}

// History returns recent global messages, or the caller's conversation with
// peer, oldest first.
// GET /api/history?peer=<id>&limit=<n>
func (h *APIHandlers) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "history is disabled"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	clientID := c.GetString(ContextKeyClientID)
	peer := strings.TrimSpace(c.Query("peer"))

	var (
		msgs []*store.Message
		err  error
	)
	if peer == "" {
		msgs, err = h.history.ListGlobalMessages(c.Request.Context(), limit)
	} else {
		msgs, err = h.history.ListPrivateMessages(c.Request.Context(), clientID, peer, limit)
	}
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Str("peer", peer).Msg("failed to list history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		response = append(response, messageToResponse(m))
	}
	c.JSON(http.StatusOK, response)
}

func messageToResponse(m *store.Message) MessageResponse {
	resp := MessageResponse{
		ID:     m.ID,
		Kind:   string(m.Kind),
		Sender: proto.User{ID: m.SenderID, Name: m.SenderName},
		Text:   m.Text,
		TS:     m.CreatedAt.UnixMilli(),
	}
	if m.Kind == store.MessageKindPrivate {
		resp.Recipient = &proto.User{ID: m.RecipientID, Name: m.RecipientName}
	}
	return resp
}
