package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

// KeyGenerator is implemented by service.APIKeyService.
type KeyGenerator interface {
	Generate(ctx context.Context, durationHours int) (*models.APIKey, error)
}

// APIKeyHandler issues extension API keys.
type APIKeyHandler struct {
	keys KeyGenerator
}

func NewAPIKeyHandler(keys KeyGenerator) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Create handles POST /api/auth/apikey.
func (h *APIKeyHandler) Create(c *gin.Context) {
	var req struct {
		DurationInHours int `json:"durationInHours" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid or missing durationInHours")
		return
	}

	key, err := h.keys.Generate(c.Request.Context(), req.DurationInHours)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidInput) {
			utils.Error(c, 400, "INVALID_REQUEST", err.Error())
			return
		}
		log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Msg("Failed to generate API key")
		utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		return
	}

	utils.Success(c, 201, "API key created", gin.H{
		"apiKey":          key.APIKey,
		"durationInHours": req.DurationInHours,
		"expiresAt":       key.ExpiresAt,
	})
}
