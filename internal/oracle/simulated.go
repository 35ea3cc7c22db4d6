package oracle

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

// DefaultLatency is the simulated inference delay.
const DefaultLatency = 450 * time.Millisecond

// PredictionCount is the number of hotspots in a predictions result.
const PredictionCount = 16

// Bounding box for predicted hotspots (roughly Canada).
const (
	MinLatitude  = 42.0
	MaxLatitude  = 68.0
	MinLongitude = -140.0
	MaxLongitude = -52.0
)

const (
	reasonSevere   = "High wind + dry vegetation + proximity to recent fire activity"
	reasonElevated = "Elevated seasonal risk based on vegetation and climate patterns"
)

// Option configures a Simulated oracle.
type Option func(*Simulated)

// WithSeed makes the random source deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Simulated) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLatency sets the delay applied before each analysis.
func WithLatency(d time.Duration) Option {
	return func(s *Simulated) { s.latency = d }
}

// Simulated returns random but well-formed analyses.
type Simulated struct {
	mu      sync.Mutex
	rng     *rand.Rand
	latency time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ Oracle = (*Simulated)(nil)

// NewSimulated creates a randomly seeded Simulated oracle.
func NewSimulated(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Simulated {
	s := &Simulated{
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		latency: DefaultLatency,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze waits the configured latency and returns a zone analysis or a set
// of predictions depending on the request.
func (s *Simulated) Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	mode := req.resolvedMode()
	start := time.Now()

	if err := domain.Sleep(ctx, s.latency); err != nil {
		s.metrics.OracleRequests.WithLabelValues(mode.String(), "error").Inc()
		return domain.AnalysisResult{}, err
	}

	s.mu.Lock()
	var result domain.AnalysisResult
	if mode == ModePredictions {
		result.Predictions = s.predictions()
	} else {
		zone := s.zone()
		result.Zone = &zone
	}
	s.mu.Unlock()

	s.metrics.OracleRequests.WithLabelValues(mode.String(), "success").Inc()
	s.metrics.OracleDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	s.logger.Debug("simulated analysis", "mode", mode.String())
	return result, nil
}

func (s *Simulated) predictions() []domain.Prediction {
	out := make([]domain.Prediction, PredictionCount)
	for i := range out {
		lat := round(s.between(MinLatitude, MaxLatitude), 5)
		lng := round(s.between(MinLongitude, MaxLongitude), 5)
		score := round(s.between(55, 92), 1)
		reason := reasonElevated
		if score > 80 {
			reason = reasonSevere
		}
		out[i] = domain.Prediction{Latitude: lat, Longitude: lng, RiskScore: score, Reason: reason}
	}
	return out
}

func (s *Simulated) zone() domain.ZoneAnalysis {
	score := round(s.between(25, 95), 1)
	weather := domain.WeatherConditions{
		Temp:     round(s.between(14, 36), 1),
		Wind:     round(s.between(5, 45), 1),
		Humidity: round(s.between(10, 65), 1),
	}
	vegetation := round(s.between(0.18, 0.75), 2)
	fires := int(math.Floor(s.between(0, 18)))

	return domain.ZoneAnalysis{
		RiskScore:         score,
		RiskLevel:         domain.ClassifyRisk(score),
		VegetationIndex:   vegetation,
		HistoricalFires:   fires,
		WeatherConditions: weather,
		AnalysisSummary:   summarize(weather, vegetation, fires),
	}
}

// summarize builds the narrative for a simulated zone analysis.
func summarize(w domain.WeatherConditions, vegetation float64, fires int) string {
	var b strings.Builder
	b.WriteString("Simulated assessment based on location context. Key drivers: ")
	if w.Wind > 25 {
		b.WriteString("higher winds, ")
	}
	if w.Humidity < 25 {
		b.WriteString("low humidity, ")
	}
	if vegetation < 0.35 {
		b.WriteString("dry fuels, ")
	} else {
		b.WriteString("moderate fuels, ")
	}
	if fires > 8 {
		b.WriteString("frequent historical activity.")
	} else {
		b.WriteString("some historical activity.")
	}
	b.WriteString(" Recommendations: monitor wind shifts, maintain defensible space, and prepare for rapid escalation if conditions worsen.")
	return b.String()
}

// between returns a uniform value in [lo, hi). Callers hold s.mu.
func (s *Simulated) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
