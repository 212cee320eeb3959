package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/cache"
	"github.com/GTDGit/keyprice_api/internal/config"
	"github.com/GTDGit/keyprice_api/internal/events"
	"github.com/GTDGit/keyprice_api/internal/metrics"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/pricing"
	"github.com/GTDGit/keyprice_api/internal/utils"
	"github.com/GTDGit/keyprice_api/pkg/allkeyshop"
)

// PriceService answers price requests: it validates the request, queries the
// catalog and returns the cheapest offer of every merchant.
type PriceService struct {
	catalog         Catalog
	cache           *cache.PriceCache
	publisher       events.Publisher
	metrics         *metrics.Registry
	defaultCurrency string
	defaultPlatform string
}

// PriceLookup is the outcome of a successful price request.
type PriceLookup struct {
	Title     string
	Criteria  pricing.Criteria
	Offers    []models.GroupedOfferResponse
	FromCache bool
}

// NewPriceService constructs a new PriceService. priceCache, publisher and m may be nil.
func NewPriceService(catalog Catalog, priceCache *cache.PriceCache, publisher events.Publisher, m *metrics.Registry, cfg config.PricingConfig) *PriceService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &PriceService{
		catalog:         catalog,
		cache:           priceCache,
		publisher:       publisher,
		metrics:         m,
		defaultCurrency: cfg.DefaultCurrency,
		defaultPlatform: cfg.DefaultPlatform,
	}
}

// GetPrices returns the ranked per-merchant offers for req.
func (s *PriceService) GetPrices(ctx context.Context, req models.PriceRequest) ([]models.GroupedOfferResponse, error) {
	res, err := s.Lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.Offers, nil
}

// Lookup is GetPrices plus cache provenance.
//
// Errors: utils.ErrInvalidInput before any I/O, utils.ErrGameNotFound when the
// catalog has no such game, utils.ErrUpstream for catalog failures.
func (s *PriceService) Lookup(ctx context.Context, req models.PriceRequest) (*PriceLookup, error) {
	title := req.Title()
	if title == "" {
		s.metrics.ObserveRequest(metrics.OutcomeInvalid)
		return nil, utils.WithMessage(utils.ErrInvalidInput, "gameTitle is required")
	}

	criteria, err := pricing.NewCriteria(req.FilterOptions, s.defaultCurrency, s.defaultPlatform)
	if err != nil {
		s.metrics.ObserveRequest(metrics.OutcomeInvalid)
		return nil, utils.WithMessage(utils.ErrInvalidInput, err.Error())
	}

	loader := func(ctx context.Context) ([]models.GroupedOfferResponse, error) {
		return s.load(ctx, title, criteria)
	}

	var (
		offers    []models.GroupedOfferResponse
		fromCache bool
	)
	if s.cache != nil {
		key, keyErr := cache.Key(struct {
			Title    string           `json:"title"`
			Criteria pricing.Criteria `json:"criteria"`
		}{pricing.Normalize(title), criteria})
		if keyErr != nil {
			return nil, keyErr
		}
		offers, fromCache, err = s.cache.GetOrLoad(ctx, key, loader)
	} else {
		offers, err = loader(ctx)
	}

	outcome := outcomeOf(err)
	s.metrics.ObserveRequest(outcome)
	if outcome != metrics.OutcomeError {
		ev := events.NewSearchEvent(pricing.Normalize(title), string(criteria.Currency), criteria.Platform, outcome)
		ev.Groups = len(offers)
		ev.FromCache = fromCache
		ev.ClientID = req.ClientID
		events.PublishAsync(s.publisher, ev, s.metrics)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("title", title).
		Str("currency", string(criteria.Currency)).
		Str("platform", criteria.Platform).
		Int("groups", len(offers)).
		Bool("from_cache", fromCache).
		Msg("Price request served")

	return &PriceLookup{Title: title, Criteria: criteria, Offers: offers, FromCache: fromCache}, nil
}

func (s *PriceService) load(ctx context.Context, title string, criteria pricing.Criteria) ([]models.GroupedOfferResponse, error) {
	start := time.Now()
	result, err := s.catalog.Search(ctx, title, criteria.Currency, criteria.Platform)
	s.metrics.ObserveCatalog(time.Since(start))
	if err != nil {
		var httpErr *allkeyshop.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsRateLimited() {
			log.Warn().
				Str("title", title).
				Dur("retry_after", httpErr.RetryAfter).
				Msg("Catalog rate limit hit")
		} else {
			log.Error().Err(err).Str("title", title).Msg("Catalog search failed")
		}
		return nil, fmt.Errorf("%w: %w", utils.ErrUpstream, err)
	}

	if !result.Success {
		log.Info().Str("title", title).Msg("Game not found in catalog")
		return nil, utils.ErrGameNotFound
	}

	groups, stats := pricing.Build(result, criteria)
	s.metrics.AddOffers("considered", stats.Considered)
	s.metrics.AddOffers("missing_price", stats.MissingPrice)
	s.metrics.AddOffers("unknown_merchant", stats.UnknownMerchant)
	s.metrics.AddOffers("rejected", stats.Rejected)
	s.metrics.AddOffers("kept", stats.Kept)

	log.Debug().
		Str("title", title).
		Int("considered", stats.Considered).
		Int("missing_price", stats.MissingPrice).
		Int("unknown_merchant", stats.UnknownMerchant).
		Int("rejected", stats.Rejected).
		Int("groups", stats.Groups).
		Msg("Offers filtered and grouped")

	return pricing.Present(groups), nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, utils.ErrGameNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
