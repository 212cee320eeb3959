package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/utils"
	"github.com/GTDGit/keyprice_api/pkg/steampage"
)

// maxPageBytes bounds the HTML accepted by Extract.
const maxPageBytes = 4 << 20

// TitleFetcher is implemented by steampage.Fetcher.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, rawURL string) (string, error)
}

// TitleHandler extracts game titles from Steam store pages.
type TitleHandler struct {
	fetcher TitleFetcher
}

func NewTitleHandler(fetcher TitleFetcher) *TitleHandler {
	return &TitleHandler{fetcher: fetcher}
}

// Extract handles POST /api/titles/extract with either {html} or {url}.
func (h *TitleHandler) Extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPageBytes)

	var req struct {
		HTML string `json:"html"`
		URL  string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	hasHTML := strings.TrimSpace(req.HTML) != ""
	hasURL := strings.TrimSpace(req.URL) != ""
	if hasHTML == hasURL {
		utils.Error(c, 400, "INVALID_REQUEST", "Exactly one of html or url is required")
		return
	}

	var (
		title string
		err   error
	)
	if hasHTML {
		title, err = steampage.ExtractTitle(strings.NewReader(req.HTML))
	} else {
		title, err = h.fetcher.FetchTitle(c.Request.Context(), req.URL)
	}

	if err != nil {
		switch {
		case errors.Is(err, steampage.ErrTitleNotFound):
			utils.Error(c, 404, "TITLE_NOT_FOUND", "No game title found on page")
		case errors.Is(err, steampage.ErrUnsupportedURL):
			utils.Error(c, 400, "INVALID_REQUEST", "Only https://"+steampage.StoreHost+" URLs are supported")
		default:
			log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Msg("Title extraction failed")
			utils.Error(c, 500, "INTERNAL_ERROR", "Internal server error")
		}
		return
	}

	utils.Success(c, 200, "Title extracted successfully", gin.H{
		"title": title,
		"slug":  steampage.Slug(title),
	})
}
