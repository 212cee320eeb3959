package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/keyprice_api/internal/config"
	"github.com/GTDGit/keyprice_api/internal/models"
	"github.com/GTDGit/keyprice_api/internal/utils"
)

type memKeyStore struct {
	mu     sync.Mutex
	keys   map[string]*models.APIKey
	nextID int
	err    error
}

func newMemKeyStore() *memKeyStore {
	return &memKeyStore{keys: map[string]*models.APIKey{}}
}

func (m *memKeyStore) Create(_ context.Context, key *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	key.ID = m.nextID
	key.CreatedAt = time.Now()
	cp := *key
	m.keys[key.APIKey] = &cp
	return nil
}

func (m *memKeyStore) GetByKey(_ context.Context, apiKey string) (*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	k, ok := m.keys[apiKey]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *k
	return &cp, nil
}

func (m *memKeyStore) BindClientID(_ context.Context, apiKey, clientID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[apiKey]
	if !ok || k.ClientID != nil {
		return false, nil
	}
	id := clientID
	k.ClientID = &id
	return true, nil
}

func (m *memKeyStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for raw, k := range m.keys {
		if !k.ExpiresAt.After(now) {
			delete(m.keys, raw)
			n++
		}
	}
	return n, nil
}

var testAdmin = config.AdminConfig{Key: "admin-secret", ClientID: "admin-client"}

func TestAPIKeyService_Generate(t *testing.T) {
	store := newMemKeyStore()
	svc := NewAPIKeyService(store, testAdmin, nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	key, err := svc.Generate(context.Background(), 24)
	require.NoError(t, err)
	assert.Len(t, key.APIKey, 32)
	assert.Equal(t, now.Add(24*time.Hour), key.ExpiresAt)
	assert.Equal(t, 1, key.ID)
	assert.Contains(t, store.keys, key.APIKey)
}

func TestAPIKeyService_GenerateRejectsBadDuration(t *testing.T) {
	svc := NewAPIKeyService(newMemKeyStore(), testAdmin, nil)
	for _, h := range []int{0, -3, MaxKeyDurationHours + 1} {
		_, err := svc.Generate(context.Background(), h)
		assert.ErrorIs(t, err, utils.ErrInvalidInput, h)
	}
}

func TestAPIKeyService_AuthorizeBindsFirstClient(t *testing.T) {
	svc := NewAPIKeyService(newMemKeyStore(), testAdmin, nil)
	ctx := context.Background()
	key, err := svc.Generate(ctx, 1)
	require.NoError(t, err)

	admin, err := svc.Authorize(ctx, key.APIKey, "client-a")
	require.NoError(t, err)
	assert.False(t, admin)

	_, err = svc.Authorize(ctx, key.APIKey, "client-a")
	assert.NoError(t, err)

	_, err = svc.Authorize(ctx, key.APIKey, "client-b")
	assert.ErrorIs(t, err, utils.ErrClientMismatch)
}

func TestAPIKeyService_AuthorizeRejectsLongClientID(t *testing.T) {
	store := newMemKeyStore()
	svc := NewAPIKeyService(store, testAdmin, nil)
	ctx := context.Background()
	key, err := svc.Generate(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, key.APIKey, strings.Repeat("c", MaxClientIDLength+1))
	assert.ErrorIs(t, err, utils.ErrInvalidAPIKey)

	stored, err := store.GetByKey(ctx, key.APIKey)
	require.NoError(t, err)
	assert.Nil(t, stored.ClientID)

	_, err = svc.Authorize(ctx, key.APIKey, strings.Repeat("c", MaxClientIDLength))
	assert.NoError(t, err)
}

func TestAPIKeyService_AuthorizeFailures(t *testing.T) {
	store := newMemKeyStore()
	svc := NewAPIKeyService(store, testAdmin, nil)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	key, err := svc.Generate(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, "", "client")
	assert.ErrorIs(t, err, utils.ErrInvalidAPIKey)
	_, err = svc.Authorize(ctx, key.APIKey, "")
	assert.ErrorIs(t, err, utils.ErrInvalidAPIKey)
	_, err = svc.Authorize(ctx, "unknown", "client")
	assert.ErrorIs(t, err, utils.ErrInvalidAPIKey)

	now = now.Add(2 * time.Hour)
	_, err = svc.Authorize(ctx, key.APIKey, "client")
	assert.ErrorIs(t, err, utils.ErrAPIKeyExpired)
	assert.Nil(t, store.keys[key.APIKey].ClientID, "expired keys are never bound")

	store.err = errors.New("db down")
	_, err = svc.Authorize(ctx, "any", "client")
	assert.EqualError(t, err, "db down")
}

func TestAPIKeyService_AdminBypass(t *testing.T) {
	svc := NewAPIKeyService(newMemKeyStore(), testAdmin, nil)

	admin, err := svc.Authorize(context.Background(), "admin-secret", "admin-client")
	require.NoError(t, err)
	assert.True(t, admin)

	_, err = svc.Authorize(context.Background(), "admin-secret", "someone-else")
	assert.ErrorIs(t, err, utils.ErrInvalidAPIKey)

	noAdmin := NewAPIKeyService(newMemKeyStore(), config.AdminConfig{Key: "k"}, nil)
	assert.False(t, noAdmin.IsAdmin("k", ""))
}

func TestAPIKeyService_DeleteExpired(t *testing.T) {
	store := newMemKeyStore()
	svc := NewAPIKeyService(store, testAdmin, nil)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	_, err := svc.Generate(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, 48)
	require.NoError(t, err)

	now = now.Add(3 * time.Hour)
	n, err := svc.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, store.keys, 1)
}
