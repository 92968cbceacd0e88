package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/metrics"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// Deps are the collaborators of the HTTP server. History and Verifier may
// be nil.
type Deps struct {
	Relay    *core.Relay
	History  store.MessageStore
	Verifier *auth.Verifier
}

// NewServer builds the HTTP server: health, metrics, the REST API and the
// WebSocket bridge.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	verifier := deps.Verifier
	if verifier == nil {
		verifier = auth.NewVerifier(nil, false)
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(deps.Relay, deps.History, logger)
	router.GET("/health", api.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(deps.Relay, verifier, cfg.HeartbeatInterval, logger)))

	group := router.Group("/api")
	group.GET("/users", api.Users)
	group.GET("/history", IdentityMiddleware(verifier, logger), api.History)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
