package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/middleware"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/service"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

// PriceLookuper is implemented by service.PriceService.
type PriceLookuper interface {
	Lookup(ctx context.Context, req models.PriceRequest) (*service.PriceLookup, error)
}

// PriceHandler serves POST /api/prices.
type PriceHandler struct {
	prices PriceLookuper
}

// NewPriceHandler constructs a PriceHandler.
func NewPriceHandler(prices PriceLookuper) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// GetPrices returns the cheapest offer of every merchant for a game title.
func (h *PriceHandler) GetPrices(c *gin.Context) {
	var req models.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	req.ClientID = middleware.GetClientID(c)

	res, err := h.prices.Lookup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidInput):
			utils.Error(c, 400, "INVALID_REQUEST", err.Error())
		case errors.Is(err, utils.ErrGameNotFound):
			utils.Error(c, 404, "GAME_NOT_FOUND", "Game not found")
		default:
			log.Error().Err(err).
				Str("request_id", utils.GetRequestID(c)).
				Str("title", req.Title()).
				Msg("Price request failed")
			utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	utils.SuccessCached(c, 200, "Prices retrieved successfully", res.Offers, res.FromCache)
}
