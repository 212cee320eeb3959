package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/utils"
)

// Header names used by the extension.
const (
	HeaderAPIKey   = "X-Api-Key"
	HeaderClientID = "X-Client-Id"
)

// KeyAuthorizer is implemented by service.APIKeyService.
type KeyAuthorizer interface {
	Authorize(ctx context.Context, apiKey, clientID string) (bool, error)
}

// APIKeyMiddleware checks the X-Api-Key / X-Client-Id pair on extension routes.
type APIKeyMiddleware struct {
	keys        KeyAuthorizer
	rateLimiter *InvalidAuthRateLimiter
}

// NewAPIKeyMiddleware constructs a new APIKeyMiddleware.
func NewAPIKeyMiddleware(keys KeyAuthorizer, rateLimiter *InvalidAuthRateLimiter) *APIKeyMiddleware {
	if rateLimiter == nil {
		rateLimiter = NewInvalidAuthRateLimiter(DefaultInvalidAuthLimit, DefaultInvalidAuthWindow)
	}
	return &APIKeyMiddleware{keys: keys, rateLimiter: rateLimiter}
}

// Handle returns a Gin middleware function that enforces API key authentication.
func (m *APIKeyMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		clientID := c.GetHeader(HeaderClientID)

		if apiKey == "" || clientID == "" {
			m.handleAuthError(c, "MISSING_CREDENTIALS", "API Key and Client ID are required")
			return
		}

		isAdmin, err := m.keys.Authorize(c.Request.Context(), apiKey, clientID)
		switch {
		case err == nil:
		case errors.Is(err, utils.ErrAPIKeyExpired):
			m.handleAuthError(c, "API_KEY_EXPIRED", "API Key has expired")
			return
		case errors.Is(err, utils.ErrClientMismatch):
			m.handleAuthError(c, "CLIENT_MISMATCH", "API Key is bound to another client")
			return
		case errors.Is(err, utils.ErrInvalidAPIKey):
			m.handleAuthError(c, "INVALID_API_KEY", "Invalid or expired API Key or Client ID")
			return
		default:
			log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Msg("API key lookup failed")
			utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
			c.Abort()
			return
		}

		c.Set("client_id", clientID)
		c.Set("is_admin", isAdmin)
		c.Next()
	}
}

func (m *APIKeyMiddleware) handleAuthError(c *gin.Context, code, message string) {
	// Apply rate limit for invalid auth attempts
	ip := c.ClientIP()
	if !m.rateLimiter.Allow(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
		c.Abort()
		return
	}

	utils.Error(c, 401, code, message)
	c.Abort()
}

// GetClientID returns the authenticated extension client id.
func GetClientID(c *gin.Context) string {
	return c.GetString("client_id")
}
