// Package collection implements named record collections over the
// key-value store: list with sort and limit, create, update and delete.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 100

// DefaultLatency is the simulated round-trip delay of every operation.
const DefaultLatency = 250 * time.Millisecond

// Store reads and writes whole collections. kvstore.Adapter implements it.
type Store interface {
	Read(ctx context.Context, collection string, seed []domain.Record) ([]domain.Record, error)
	Write(ctx context.Context, collection string, records []domain.Record) error
}

// ListOptions controls List. Sort is a field name, prefixed with "-" for
// descending order. Limit 0 means DefaultListLimit; a negative Limit means
// no limit.
type ListOptions struct {
	Sort  string
	Limit int
}

// DeleteResult is returned by Delete.
type DeleteResult struct {
	Success bool `json:"success"`
}

// Option configures a Collection.
type Option func(*Collection)

// WithLatency sets the delay applied before each operation.
func WithLatency(d time.Duration) Option {
	return func(c *Collection) { c.latency = d }
}

// Collection is one named entity collection.
type Collection struct {
	name    string
	store   Store
	seed    []domain.Record
	latency time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	// mu serializes read-modify-write within this process.
	mu sync.Mutex
}

// New creates a Collection backed by store, seeded with seed on first read.
func New(name string, store Store, seed []domain.Record, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Collection {
	c := &Collection{
		name:    name,
		store:   store,
		seed:    seed,
		latency: DefaultLatency,
		logger:  logger.With("collection", name),
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// List returns up to opts.Limit records ordered by opts.Sort.
func (c *Collection) List(ctx context.Context, opts ListOptions) ([]domain.Record, error) {
	if err := domain.Sleep(ctx, c.latency); err != nil {
		return nil, err
	}
	records, err := c.store.Read(ctx, c.name, c.seed)
	if err != nil {
		c.observe("list", err)
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}

	sortRecords(records, opts.Sort)

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	c.observe("list", nil)
	return records, nil
}

// Create stores data as a new record with a fresh id and timestamps and
// returns it. Generated fields override any supplied in data.
func (c *Collection) Create(ctx context.Context, data domain.Record) (domain.Record, error) {
	if err := domain.Sleep(ctx, c.latency); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Read(ctx, c.name, c.seed)
	if err != nil {
		c.observe("create", err)
		return nil, fmt.Errorf("create %s: %w", c.name, err)
	}

	record := data.Clone()
	if record == nil {
		record = domain.Record{}
	}
	now := domain.Timestamp()
	record[domain.FieldID] = uuid.NewString()
	record[domain.FieldCreatedDate] = now
	record[domain.FieldUpdatedDate] = now

	records = append([]domain.Record{record}, records...)
	if err := c.store.Write(ctx, c.name, records); err != nil {
		c.observe("create", err)
		return nil, fmt.Errorf("create %s: %w", c.name, err)
	}

	c.logger.Debug("record created", "id", record.ID())
	c.observe("create", nil)
	return record, nil
}

// Update merges patch into the record with id and refreshes updated_date.
// The id and created_date of the record cannot be changed. When no record
// has id the error wraps domain.ErrNotFound and storage is left untouched.
func (c *Collection) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	if err := domain.Sleep(ctx, c.latency); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Read(ctx, c.name, c.seed)
	if err != nil {
		c.observe("update", err)
		return nil, fmt.Errorf("update %s: %w", c.name, err)
	}

	idx := -1
	for i, r := range records {
		if r.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.metrics.CollectionOps.WithLabelValues(c.name, "update", "not_found").Inc()
		return nil, fmt.Errorf("%s: %w", c.name, domain.ErrNotFound)
	}

	updated := records[idx].Merge(patch)
	updated[domain.FieldUpdatedDate] = domain.Timestamp()
	records[idx] = updated

	if err := c.store.Write(ctx, c.name, records); err != nil {
		c.observe("update", err)
		return nil, fmt.Errorf("update %s: %w", c.name, err)
	}

	c.logger.Debug("record updated", "id", id)
	c.observe("update", nil)
	return updated, nil
}

// Delete removes every record with id. Deleting an unknown id succeeds.
func (c *Collection) Delete(ctx context.Context, id string) (DeleteResult, error) {
	if err := domain.Sleep(ctx, c.latency); err != nil {
		return DeleteResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Read(ctx, c.name, c.seed)
	if err != nil {
		c.observe("delete", err)
		return DeleteResult{}, fmt.Errorf("delete %s: %w", c.name, err)
	}

	kept := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if err := c.store.Write(ctx, c.name, kept); err != nil {
		c.observe("delete", err)
		return DeleteResult{}, fmt.Errorf("delete %s: %w", c.name, err)
	}

	c.logger.Debug("record deleted", "id", id, "removed", len(records)-len(kept))
	c.observe("delete", nil)
	return DeleteResult{Success: true}, nil
}

func (c *Collection) observe(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.CollectionOps.WithLabelValues(c.name, op, outcome).Inc()
}
