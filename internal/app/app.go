// Package app assembles the service from configuration: the key-value
// backend, entity collections, the analysis oracle, geocoding and alert
// publishing. The server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/wildfire-watch-service/internal/adapter/filestore"
	"github.com/couchcryptid/wildfire-watch-service/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-watch-service/internal/adapter/mapbox"
	"github.com/couchcryptid/wildfire-watch-service/internal/adapter/postgres"
	s3store "github.com/couchcryptid/wildfire-watch-service/internal/adapter/s3"
	"github.com/couchcryptid/wildfire-watch-service/internal/adapter/sqlite"
	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/config"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/kvstore"
	"github.com/couchcryptid/wildfire-watch-service/internal/monitor"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
	"github.com/couchcryptid/wildfire-watch-service/internal/oracle"
	"github.com/couchcryptid/wildfire-watch-service/internal/seed"
)

// Backend connection retries for network drivers.
const (
	connectAttempts   = 5
	connectBackoff    = 200 * time.Millisecond
	connectMaxBackoff = 5 * time.Second
)

// App holds the wired service components.
type App struct {
	Store       *kvstore.Adapter
	Collections *collection.Registry
	Oracle      oracle.Oracle
	Monitor     *monitor.Service

	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name string
	io.Closer
}

// New builds every component selected by cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{logger: logger}

	backend, err := connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, namedCloser{"store backend", backend})
	a.Store = kvstore.NewAdapter(backend, logger, metrics)

	seeds, err := seed.Load(domain.Now())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load seeds: %w", err)
	}
	a.Collections = collection.NewRegistry(a.Store, seeds, logger, metrics, collection.WithLatency(cfg.StoreLatency))

	a.Oracle, err = newOracle(ctx, cfg, logger, metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var opts []monitor.Option
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		opts = append(opts, monitor.WithGeocoder(geocoder))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	if cfg.AlertsKafkaEnabled {
		writer := kafka.NewAlertWriter(cfg, logger)
		a.closers = append(a.closers, namedCloser{"kafka alert writer", writer})
		opts = append(opts, monitor.WithPublisher(writer))
		logger.Info("alert publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	}

	a.Monitor = monitor.New(a.Collections, a.Oracle, logger, metrics, opts...)
	return a, nil
}

// CheckReadiness reports whether the store backend is reachable.
func (a *App) CheckReadiness(ctx context.Context) error {
	return a.Store.CheckReadiness(ctx)
}

// Close releases components in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.logger.Error("close failed", "component", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// connect opens the configured backend. Network backends are retried with
// exponential backoff so the service can start alongside its database.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kvstore.Backend, error) {
	attempts := 1
	if cfg.StoreDriver == config.StorePostgres || cfg.StoreDriver == config.StoreS3 {
		attempts = connectAttempts
	}

	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		backend, err := openBackend(ctx, cfg)
		if err == nil {
			logger.Info("store backend ready", "driver", cfg.StoreDriver)
			return backend, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
		logger.Warn("store backend unavailable, retrying",
			"driver", cfg.StoreDriver,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, connectMaxBackoff)
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (kvstore.Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return kvstore.NewMemoryBackend(), nil
	case config.StoreFile:
		return filestore.Open(cfg.StorePath)
	case config.StoreSQLite:
		return sqlite.Open(cfg.StorePath)
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.StoreDSN)
	case config.StoreS3:
		store, err := s3store.New(ctx, s3store.Config{
			Bucket:    cfg.StoreS3Bucket,
			Region:    cfg.StoreS3Region,
			Endpoint:  cfg.StoreS3Endpoint,
			PathStyle: cfg.StoreS3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newOracle(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (oracle.Oracle, error) {
	switch cfg.OracleDriver {
	case config.OracleGenAI:
		o, err := oracle.NewGenAI(ctx, cfg.GenAIAPIKey, cfg.GenAIModel, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("create genai oracle: %w", err)
		}
		logger.Info("genai oracle enabled", "model", cfg.GenAIModel)
		return o, nil
	case config.OracleSimulated, "":
		return oracle.NewSimulated(logger, metrics, oracle.WithLatency(cfg.OracleLatency)), nil
	default:
		return nil, fmt.Errorf("unknown oracle driver %q", cfg.OracleDriver)
	}
}
