package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a Store on a local Pebble database. Each value is prefixed
// with its expiry as 8 bytes of big-endian unix nanoseconds; zero means no expiry.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

// NewPebbleStore opens (or creates) a Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		MemTableSize:             64 << 20,
		MaxConcurrentCompactions: func() int { return 2 },
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d, now: time.Now}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func encodeEntry(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

func decodeEntry(raw []byte) ([]byte, time.Time, error) {
	if len(raw) < 8 {
		return nil, time.Time{}, errors.New("pebble: corrupt cache entry")
	}
	var expiresAt time.Time
	if ns := binary.BigEndian.Uint64(raw[:8]); ns != 0 {
		expiresAt = time.Unix(0, int64(ns))
	}
	value := append([]byte(nil), raw[8:]...)
	return value, expiresAt, nil
}

func (p *PebbleStore) expired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !p.now().Before(expiresAt)
}

func (p *PebbleStore) Get(_ context.Context, key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	value, expiresAt, decErr := decodeEntry(v)
	_ = closer.Close()
	if decErr != nil {
		return nil, decErr
	}
	if p.expired(expiresAt) {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (p *PebbleStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = p.now().Add(ttl)
	}
	return p.db.Set([]byte(key), encodeEntry(value, expiresAt), pebble.NoSync)
}

func (p *PebbleStore) Delete(_ context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	wb := p.db.NewBatch()
	defer wb.Close()
	for _, k := range keys {
		if err := wb.Delete([]byte(k), nil); err != nil {
			return err
		}
	}
	return wb.Commit(pebble.NoSync)
}

// Sweep deletes every expired entry.
func (p *PebbleStore) Sweep(ctx context.Context) (int, error) {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return 0, err
	}
	var stale [][]byte
	for it.First(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			_ = it.Close()
			return 0, err
		}
		_, expiresAt, decErr := decodeEntry(it.Value())
		if decErr != nil || p.expired(expiresAt) {
			stale = append(stale, append([]byte(nil), it.Key()...))
		}
	}
	if err := it.Close(); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := p.db.NewBatch()
	defer wb.Close()
	for _, k := range stale {
		if err := wb.Delete(k, nil); err != nil {
			return 0, err
		}
	}
	if err := wb.Commit(pebble.NoSync); err != nil {
		return 0, err
	}
	return len(stale), nil
}
