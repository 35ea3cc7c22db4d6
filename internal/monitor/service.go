// Package monitor runs wildfire risk analysis over the monitored zones:
// the batch job, single-zone analysis, hotspot prediction, zone creation and
// the dashboard summary.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
	"github.com/couchcryptid/wildfire-watch-service/internal/oracle"
)

// JobZoneLimit caps the zones processed by one AnalyzeZones run.
const JobZoneLimit = 200

// AlertPublisher forwards created alert records to an external sink.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert domain.Record) error
}

// JobResult reports a batch analysis run.
type JobResult struct {
	Success       bool `json:"success"`
	ZonesAnalyzed int  `json:"zones_analyzed"`
	AlertsCreated int  `json:"alerts_created"`
}

// Option configures a Service.
type Option func(*Service)

// WithGeocoder enables location enrichment of new zones.
func WithGeocoder(g domain.Geocoder) Option {
	return func(s *Service) { s.geocoder = g }
}

// WithPublisher forwards every created alert to p.
func WithPublisher(p AlertPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// Service coordinates the zone, alert config and alert history collections
// with an oracle.
type Service struct {
	zones     *collection.Collection
	configs   *collection.Collection
	history   *collection.Collection
	oracle    oracle.Oracle
	geocoder  domain.Geocoder
	publisher AlertPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service over the collections in reg.
func New(reg *collection.Registry, o oracle.Oracle, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		zones:   reg.MustGet(domain.CollectionZones),
		configs: reg.MustGet(domain.CollectionAlertConfigs),
		history: reg.MustGet(domain.CollectionAlertHistory),
		oracle:  o,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeZones re-analyzes up to JobZoneLimit zones, newest first, one at a
// time. Each zone is updated before the next is analyzed and high or extreme
// results create an alert. The first error stops the run: zones already
// processed keep their new analysis and the returned result counts them.
func (s *Service) AnalyzeZones(ctx context.Context) (JobResult, error) {
	start := time.Now()
	s.metrics.JobRunning.Set(1)
	defer s.metrics.JobRunning.Set(0)

	result, err := s.runJob(ctx)
	s.metrics.JobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.JobRuns.WithLabelValues("error").Inc()
		s.logger.Error("zone analysis job failed",
			"error", err,
			"zones_analyzed", result.ZonesAnalyzed,
			"alerts_created", result.AlertsCreated,
		)
		return result, err
	}

	s.metrics.JobRuns.WithLabelValues("success").Inc()
	s.logger.Info("zone analysis job finished",
		"zones_analyzed", result.ZonesAnalyzed,
		"alerts_created", result.AlertsCreated,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *Service) runJob(ctx context.Context) (JobResult, error) {
	var result JobResult

	zones, err := s.zones.List(ctx, collection.ListOptions{Sort: "-" + domain.FieldCreatedDate, Limit: JobZoneLimit})
	if err != nil {
		return result, fmt.Errorf("list zones: %w", err)
	}

	notifier := &notifyCounter{configs: s.configs, logger: s.logger}
	for _, rec := range zones {
		zone := domain.Zone{ID: rec.ID(), Name: rec.String("name")}
		_, alerted, err := s.analyze(ctx, zone, notifier)
		if err != nil {
			return result, fmt.Errorf("analyze zone %s (%d zones done): %w", zone.ID, result.ZonesAnalyzed, err)
		}
		result.ZonesAnalyzed++
		s.metrics.ZonesAnalyzed.Inc()
		if alerted {
			result.AlertsCreated++
		}
	}

	result.Success = true
	return result, nil
}

// AnalyzeZone analyzes the zone with id, persists the result, creates an alert
// when warranted and returns the updated zone record.
func (s *Service) AnalyzeZone(ctx context.Context, id string) (domain.Record, error) {
	zones, err := s.zones.List(ctx, collection.ListOptions{Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	for _, rec := range zones {
		if rec.ID() != id {
			continue
		}
		zone := domain.Zone{ID: rec.ID(), Name: rec.String("name")}
		updated, _, err := s.analyze(ctx, zone, &notifyCounter{configs: s.configs, logger: s.logger})
		if err != nil {
			return nil, fmt.Errorf("analyze zone %s: %w", id, err)
		}
		s.metrics.ZonesAnalyzed.Inc()
		return updated, nil
	}
	return nil, fmt.Errorf("%s: %w", domain.CollectionZones, domain.ErrNotFound)
}

// analyze runs one zone through the oracle, stores the result and creates an
// alert for high or extreme levels.
func (s *Service) analyze(ctx context.Context, zone domain.Zone, notifier *notifyCounter) (domain.Record, bool, error) {
	res, err := s.oracle.Analyze(ctx, oracle.Request{
		Prompt: "Analyze wildfire risk for " + zone.Name,
		Mode:   oracle.ModeZone,
	})
	if err != nil {
		return nil, false, err
	}
	if res.Zone == nil {
		return nil, false, errors.New("oracle returned no zone analysis")
	}
	analysis := *res.Zone

	updated, err := s.zones.Update(ctx, zone.ID, analysis.Patch(domain.Timestamp()))
	if err != nil {
		return nil, false, err
	}
	s.logger.Debug("zone analyzed",
		"zone_id", zone.ID,
		"risk_score", analysis.RiskScore,
		"risk_level", analysis.RiskLevel,
	)

	if !analysis.RiskLevel.Alerting() {
		return updated, false, nil
	}

	notified, err := notifier.count(ctx, analysis.RiskScore)
	if err != nil {
		return nil, false, err
	}
	alert, err := domain.RecordFrom(domain.NewAlert(zone, analysis, notified))
	if err != nil {
		return nil, false, err
	}
	created, err := s.history.Create(ctx, alert)
	if err != nil {
		return nil, false, fmt.Errorf("create alert: %w", err)
	}
	s.metrics.AlertsCreated.Inc()
	s.logger.Info("alert created",
		"zone_id", zone.ID,
		"risk_level", analysis.RiskLevel,
		"risk_score", analysis.RiskScore,
		"notified_count", notified,
	)
	s.publish(ctx, created)
	return updated, true, nil
}

// publish forwards an alert. Failures are logged and counted, never returned:
// the alert record is already the source of truth.
func (s *Service) publish(ctx context.Context, alert domain.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlert(ctx, alert); err != nil {
		s.metrics.AlertsPublished.WithLabelValues("error").Inc()
		s.logger.Warn("publish alert failed", "alert_id", alert.ID(), "error", err)
		return
	}
	s.metrics.AlertsPublished.WithLabelValues("success").Inc()
}

// PredictHotspots asks the oracle for heat-map predictions around the
// monitored zones.
func (s *Service) PredictHotspots(ctx context.Context) ([]domain.Prediction, error) {
	zones, err := s.zones.List(ctx, collection.ListOptions{Sort: "-risk_score", Limit: collection.DefaultListLimit})
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	names := make([]string, 0, len(zones))
	for _, z := range zones {
		if name := z.String("name"); name != "" {
			names = append(names, name)
		}
	}

	prompt := "Predict wildfire hotspots for a heat map across Canada."
	if len(names) > 0 {
		prompt += " Monitored zones: " + strings.Join(names, "; ") + "."
	}
	res, err := s.oracle.Analyze(ctx, oracle.Request{Prompt: prompt, Mode: oracle.ModePredictions})
	if err != nil {
		return nil, fmt.Errorf("predict hotspots: %w", err)
	}
	if res.Predictions == nil {
		return []domain.Prediction{}, nil
	}
	return res.Predictions, nil
}

// CreateZone stores a new zone with status and risk fields reset to their
// defaults, enriched
// with geocoded location data when a geocoder is configured.
func (s *Service) CreateZone(ctx context.Context, data domain.Record) (domain.Record, error) {
	rec := data.Merge(domain.ZoneDefaults())
	rec = domain.EnrichZoneLocation(ctx, rec, s.geocoder, s.logger)

	created, err := s.zones.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("create zone: %w", err)
	}
	s.logger.Info("zone created", "zone_id", created.ID(), "name", created.String("name"))
	return created, nil
}

// notifyCounter counts the active alert configs matching a score. Configs
// are loaded once, on first use.
type notifyCounter struct {
	configs *collection.Collection
	logger  *slog.Logger
	loaded  []domain.AlertConfig
	done    bool
}

func (n *notifyCounter) count(ctx context.Context, score float64) (int, error) {
	if !n.done {
		records, err := n.configs.List(ctx, collection.ListOptions{Limit: -1})
		if err != nil {
			return 0, fmt.Errorf("list alert configs: %w", err)
		}
		for _, r := range records {
			var cfg domain.AlertConfig
			if err := r.Decode(&cfg); err != nil {
				n.logger.Warn("skipping malformed alert config", "id", r.ID(), "error", err)
				continue
			}
			n.loaded = append(n.loaded, cfg)
		}
		n.done = true
	}

	matched := 0
	for _, cfg := range n.loaded {
		if cfg.Matches(score) {
			matched++
		}
	}
	return matched, nil
}
