package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is implemented by cache.Store.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// CacheSweepWorker periodically drops expired entries from stores without native TTL.
type CacheSweepWorker struct {
	store    Sweeper
	interval time.Duration
}

// NewCacheSweepWorker constructs a CacheSweepWorker.
func NewCacheSweepWorker(store Sweeper, interval time.Duration) *CacheSweepWorker {
	return &CacheSweepWorker{store: store, interval: interval}
}

// Start begins the sweep loop and listens for context cancellation.
func (w *CacheSweepWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting cache sweep worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Cache sweep worker stopped")
			return
		}
	}
}

func (w *CacheSweepWorker) run(ctx context.Context) {
	start := time.Now()
	n, err := w.store.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Cache sweep failed")
		return
	}
	log.Debug().Int("removed", n).Dur("duration", time.Since(start)).Msg("Cache sweep completed")
}
