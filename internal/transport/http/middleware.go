package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
)

const (
	// ContextKeyClientID is the context key for storing the caller's client id.
	ContextKeyClientID = "client_id"
	// ContextKeyClientName is the context key for storing the caller's display name.
	ContextKeyClientName = "client_name"

	HeaderClientID   = "X-Client-Id"
	HeaderClientName = "X-Client-Name"
)

// IdentityMiddleware resolves the caller from the X-Client-Id header and an
// optional bearer token.
func IdentityMiddleware(verifier *auth.Verifier, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		id, err := verifier.Authenticate(c.GetHeader(HeaderClientID), c.GetHeader(HeaderClientName), token)
		if err != nil {
			logger.Debug().Err(err).Msg("identity rejected")
			code := http.StatusUnauthorized
			if errors.Is(err, auth.ErrMissingIdentity) {
				code = http.StatusBadRequest
			}
			c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
			return
		}

		c.Set(ContextKeyClientID, id.ClientID)
		c.Set(ContextKeyClientName, id.Name)

		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
