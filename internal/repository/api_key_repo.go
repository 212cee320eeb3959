package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/keyprice_api/internal/models"
)

// APIKeyRepository provides data access methods for the api_keys table.
type APIKeyRepository struct {
	db *sqlx.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository.
func NewAPIKeyRepository(db *sqlx.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create inserts key and fills its generated columns.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (api_key, expires_at)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	return r.db.QueryRowxContext(ctx, query, key.APIKey, key.ExpiresAt).
		Scan(&key.ID, &key.CreatedAt)
}

// GetByKey returns sql.ErrNoRows when the key does not exist.
func (r *APIKeyRepository) GetByKey(ctx context.Context, apiKey string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.GetContext(ctx, &key, `
		SELECT id, api_key, client_id, created_at, expires_at
		FROM api_keys
		WHERE api_key = $1
	`, apiKey)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// BindClientID attaches clientID to an unbound key. It reports false when the
// key was already bound (possibly by a concurrent request).
func (r *APIKeyRepository) BindClientID(ctx context.Context, apiKey, clientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET client_id = $2
		WHERE api_key = $1 AND client_id IS NULL
	`, apiKey, clientID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired removes keys that expired at or before now.
func (r *APIKeyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
