package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpiredKeyDeleter is implemented by service.APIKeyService.
type ExpiredKeyDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// APIKeyCleanupWorker periodically deletes expired API keys.
type APIKeyCleanupWorker struct {
	keys     ExpiredKeyDeleter
	interval time.Duration
}

// NewAPIKeyCleanupWorker constructs an APIKeyCleanupWorker.
func NewAPIKeyCleanupWorker(keys ExpiredKeyDeleter, interval time.Duration) *APIKeyCleanupWorker {
	return &APIKeyCleanupWorker{
		keys:     keys,
		interval: interval,
	}
}

// Start begins the cleanup loop and listens for context cancellation.
func (w *APIKeyCleanupWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting API key cleanup worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("API key cleanup worker stopped")
			return
		}
	}
}

func (w *APIKeyCleanupWorker) run(ctx context.Context) {
	n, err := w.keys.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete expired API keys")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("Expired API keys deleted")
	}
}
