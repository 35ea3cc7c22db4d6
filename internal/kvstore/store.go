// Package kvstore persists named collections as JSON blobs in a string-keyed
// backend. A collection is stored whole under "wwai:<name>"; reads seed
// missing collections and reset corrupt ones to their seed.
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

// KeyPrefix namespaces every collection key.
const KeyPrefix = "wwai"

// ErrKeyNotFound is returned by a Backend when a key has never been written.
var ErrKeyNotFound = errors.New("key not found")

// Backend is the persistence port. Implementations must be safe for
// concurrent use; values are opaque bytes.
type Backend interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Key returns the backend key for a collection.
func Key(collection string) string {
	return KeyPrefix + ":" + collection
}

// Adapter reads and writes whole collections. It performs no locking: the
// last Write for a collection wins.
type Adapter struct {
	backend Backend
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAdapter creates an Adapter over backend.
func NewAdapter(backend Backend, logger *slog.Logger, metrics *observability.Metrics) *Adapter {
	return &Adapter{backend: backend, logger: logger, metrics: metrics}
}

// Read returns the records stored for collection. When nothing is stored the
// seed is written and returned; when the stored content is not a JSON array
// of objects it is replaced by the seed, which is returned. The returned
// slice never aliases seed.
func (a *Adapter) Read(ctx context.Context, collection string, seed []domain.Record) ([]domain.Record, error) {
	a.metrics.StoreReads.WithLabelValues(collection).Inc()

	data, err := a.backend.Get(ctx, Key(collection))
	switch {
	case errors.Is(err, ErrKeyNotFound) || (err == nil && len(data) == 0):
		a.metrics.StoreResets.WithLabelValues(collection, "seed").Inc()
		return a.reset(ctx, collection, seed)
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}

	records, err := decode(data)
	if err != nil {
		a.logger.Warn("stored collection is corrupt, resetting to seed",
			"collection", collection,
			"error", err,
		)
		a.metrics.StoreResets.WithLabelValues(collection, "corrupt").Inc()
		return a.reset(ctx, collection, seed)
	}
	return records, nil
}

// Write replaces everything stored for collection.
func (a *Adapter) Write(ctx context.Context, collection string, records []domain.Record) error {
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	if err := a.backend.Put(ctx, Key(collection), data); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}
	a.metrics.StoreWrites.WithLabelValues(collection).Inc()
	return nil
}

// CheckReadiness pings the backend.
func (a *Adapter) CheckReadiness(ctx context.Context) error {
	if err := a.backend.Ping(ctx); err != nil {
		return fmt.Errorf("store backend unavailable: %w", err)
	}
	return nil
}

// reset writes seed and returns a decoded copy of what was written.
func (a *Adapter) reset(ctx context.Context, collection string, seed []domain.Record) ([]domain.Record, error) {
	data, err := encode(seed)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", collection, err)
	}
	if err := a.backend.Put(ctx, Key(collection), data); err != nil {
		return nil, fmt.Errorf("seed %s: %w", collection, err)
	}
	a.metrics.StoreWrites.WithLabelValues(collection).Inc()
	return decode(data)
}

func encode(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return data, nil
}

var jsonNull = []byte("null")

func decode(data []byte) ([]domain.Record, error) {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		return nil, errors.New("decode collection: null content")
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("decode collection: record %d is null", i)
		}
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}
