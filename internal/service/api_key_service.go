package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/config"
	"github.com/GTDGit/keyprice_api/internal/metrics"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

// MaxKeyDurationHours caps the lifetime of a generated key (ten years).
const MaxKeyDurationHours = 24 * 365 * 10

// MaxClientIDLength matches the api_keys.client_id column.
const MaxClientIDLength = 128

// APIKeyStore persists API keys. Implemented by repository.APIKeyRepository.
type APIKeyStore interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByKey(ctx context.Context, apiKey string) (*models.APIKey, error)
	BindClientID(ctx context.Context, apiKey, clientID string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// APIKeyService issues and checks the keys used by the browser extension.
type APIKeyService struct {
	repo    APIKeyStore
	admin   config.AdminConfig
	metrics *metrics.Registry
	now     func() time.Time
}

// NewAPIKeyService constructs a new APIKeyService.
func NewAPIKeyService(repo APIKeyStore, admin config.AdminConfig, m *metrics.Registry) *APIKeyService {
	return &APIKeyService{repo: repo, admin: admin, metrics: m, now: time.Now}
}

// Generate creates a key valid for durationHours.
func (s *APIKeyService) Generate(ctx context.Context, durationHours int) (*models.APIKey, error) {
	if durationHours <= 0 || durationHours > MaxKeyDurationHours {
		return nil, utils.WithMessage(utils.ErrInvalidInput,
			fmt.Sprintf("durationInHours must be between 1 and %d", MaxKeyDurationHours))
	}

	raw, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	key := &models.APIKey{
		APIKey:    raw,
		ExpiresAt: s.now().Add(time.Duration(durationHours) * time.Hour).UTC(),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}

	s.metrics.ObserveKeyIssued()
	log.Info().Int("id", key.ID).Int("duration_hours", durationHours).Time("expires_at", key.ExpiresAt).Msg("API key issued")
	return key, nil
}

// IsAdmin reports whether the pair matches the configured admin credentials.
func (s *APIKeyService) IsAdmin(apiKey, clientID string) bool {
	if s.admin.Key == "" || s.admin.ClientID == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.admin.Key)) == 1 &&
		subtle.ConstantTimeCompare([]byte(clientID), []byte(s.admin.ClientID)) == 1
}

// Authorize checks apiKey for clientID. An unbound key is bound to the first
// client id that presents it. It reports whether the caller is the admin.
func (s *APIKeyService) Authorize(ctx context.Context, apiKey, clientID string) (bool, error) {
	if apiKey == "" || clientID == "" || len(clientID) > MaxClientIDLength {
		return false, utils.ErrInvalidAPIKey
	}
	if s.IsAdmin(apiKey, clientID) {
		return true, nil
	}

	key, err := s.repo.GetByKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, utils.ErrInvalidAPIKey
		}
		return false, err
	}

	if key.IsExpired(s.now()) {
		return false, utils.ErrAPIKeyExpired
	}

	if !key.IsBound() {
		bound, err := s.repo.BindClientID(ctx, apiKey, clientID)
		if err != nil {
			return false, err
		}
		if bound {
			log.Info().Int("id", key.ID).Str("client_id", clientID).Msg("API key bound to client")
			return false, nil
		}
		// Lost a race with another client; re-read the winner.
		if key, err = s.repo.GetByKey(ctx, apiKey); err != nil {
			return false, err
		}
	}

	if key.ClientID == nil || *key.ClientID != clientID {
		return false, utils.ErrClientMismatch
	}
	return false, nil
}

// DeleteExpired removes expired keys and returns how many were deleted.
func (s *APIKeyService) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.AddKeysExpired(n)
	return n, nil
}
