package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/keyprice_api/internal/service"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

// OptionsHandler serves the filter catalog used by the extension popup.
type OptionsHandler struct {
	options *service.OptionsService
}

func NewOptionsHandler(options *service.OptionsService) *OptionsHandler {
	return &OptionsHandler{options: options}
}

// GetOptions handles GET /api/options.
func (h *OptionsHandler) GetOptions(c *gin.Context) {
	cat := h.options.Catalog()
	utils.Success(c, 200, "Filter options retrieved successfully", gin.H{
		"priceRange": cat.PriceRange,
		"stores":     cat.Stores,
		"regions":    cat.Regions,
		"editions":   cat.Editions,
		"currencies": cat.Currencies,
		"platforms":  cat.Platforms,
		"defaults":   h.options.Defaults(),
	})
}
