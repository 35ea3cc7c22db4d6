package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSimulated(seed uint64) (*Simulated, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return NewSimulated(discardLogger(), metrics, WithSeed(seed), WithLatency(0)), metrics
}

func TestRequest_WantsPredictions(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"plain zone prompt", Request{Prompt: "Analyze wildfire risk for Jasper National Park, AB"}, false},
		{"predict keyword", Request{Prompt: "Predict the next fires"}, true},
		{"hotspots keyword", Request{Prompt: "list HOTSPOTS"}, true},
		{"heat map keyword", Request{Prompt: "build a Heat Map"}, true},
		{"schema mentions predictions", Request{Prompt: "go", Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"predictions": map[string]any{"type": "array"}},
		}}, true},
		{"zone mode overrides keywords", Request{Prompt: "Analyze wildfire risk for Predictor Lake", Mode: ModeZone}, false},
		{"predictions mode", Request{Prompt: "anything", Mode: ModePredictions}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.WantsPredictions())
		})
	}
}

func TestSimulated_ZoneAnalysisRanges(t *testing.T) {
	s, metrics := newTestSimulated(7)

	for range 500 {
		res, err := s.Analyze(context.Background(), Request{Prompt: "Analyze wildfire risk for Banff", Mode: ModeZone})
		require.NoError(t, err)
		require.False(t, res.IsPrediction())
		z := res.Zone

		assert.GreaterOrEqual(t, z.RiskScore, 25.0)
		assert.LessOrEqual(t, z.RiskScore, 95.0)
		assert.Equal(t, domain.ClassifyRisk(z.RiskScore), z.RiskLevel)
		assert.True(t, z.RiskLevel.Valid())
		assert.InDelta(t, 25.0, z.WeatherConditions.Temp, 11.0+1e-9)
		assert.InDelta(t, 25.0, z.WeatherConditions.Wind, 20.0+1e-9)
		assert.InDelta(t, 37.5, z.WeatherConditions.Humidity, 27.5+1e-9)
		assert.InDelta(t, 0.465, z.VegetationIndex, 0.285+1e-9)
		assert.GreaterOrEqual(t, z.HistoricalFires, 0)
		assert.Less(t, z.HistoricalFires, 18)
		assert.Contains(t, z.AnalysisSummary, "Key drivers: ")
	}
	assert.Equal(t, 500.0, testutil.ToFloat64(metrics.OracleRequests.WithLabelValues("zone", "success")))
}

func TestSimulated_Predictions(t *testing.T) {
	s, _ := newTestSimulated(11)

	res, err := s.Analyze(context.Background(), Request{Prompt: "Predict wildfire hotspots"})
	require.NoError(t, err)
	require.True(t, res.IsPrediction())
	require.Len(t, res.Predictions, PredictionCount)

	for _, p := range res.Predictions {
		assert.GreaterOrEqual(t, p.Latitude, MinLatitude)
		assert.LessOrEqual(t, p.Latitude, MaxLatitude)
		assert.GreaterOrEqual(t, p.Longitude, MinLongitude)
		assert.LessOrEqual(t, p.Longitude, MaxLongitude)
		assert.GreaterOrEqual(t, p.RiskScore, 55.0)
		assert.LessOrEqual(t, p.RiskScore, 92.0)
		if p.RiskScore > 80 {
			assert.Equal(t, reasonSevere, p.Reason)
		} else {
			assert.Equal(t, reasonElevated, p.Reason)
		}
		assert.Equal(t, round(p.Latitude, 5), p.Latitude)
		assert.Equal(t, round(p.RiskScore, 1), p.RiskScore)
	}
}

func TestSimulated_SameSeedSameResults(t *testing.T) {
	a, _ := newTestSimulated(42)
	b, _ := newTestSimulated(42)
	ctx := context.Background()

	for _, req := range []Request{{Mode: ModeZone}, {Mode: ModePredictions}, {Mode: ModeZone}} {
		ra, err := a.Analyze(ctx, req)
		require.NoError(t, err)
		rb, err := b.Analyze(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	}
}

func TestSimulated_CancelledDuringLatency(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	s := NewSimulated(discardLogger(), metrics, WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Analyze(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OracleRequests.WithLabelValues("zone", "error")))
}

func TestSummarize(t *testing.T) {
	dry := summarize(domain.WeatherConditions{Wind: 30, Humidity: 20}, 0.2, 12)
	assert.Equal(t, "Simulated assessment based on location context. Key drivers: higher winds, low humidity, dry fuels, "+
		"frequent historical activity. Recommendations: monitor wind shifts, maintain defensible space, and prepare for "+
		"rapid escalation if conditions worsen.", dry)

	calm := summarize(domain.WeatherConditions{Wind: 25, Humidity: 25}, 0.35, 8)
	assert.Contains(t, calm, "Key drivers: moderate fuels, some historical activity.")
}

type fakeModels struct {
	reply  string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestGenAI_ZoneAnalysis(t *testing.T) {
	fake := &fakeModels{reply: "```json\n" + `{"risk_score":72.4,"vegetation_index":0.3,"historical_fires":4,` +
		`"weather_conditions":{"temp":31,"wind":28,"humidity":18},"analysis_summary":"dry"}` + "\n```"}
	g := newGenAI(fake, "", discardLogger(), observability.NewMetricsForTesting())

	res, err := g.Analyze(context.Background(), Request{Prompt: "Analyze wildfire risk for Jasper", Mode: ModeZone})
	require.NoError(t, err)
	require.NotNil(t, res.Zone)
	assert.Equal(t, domain.RiskHigh, res.Zone.RiskLevel, "level derived from score")
	assert.Equal(t, 72.4, res.Zone.RiskScore)
	assert.Equal(t, 28.0, res.Zone.WeatherConditions.Wind)

	assert.Equal(t, DefaultGenAIModel, fake.model)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Contains(t, fake.prompt, "Analyze wildfire risk for Jasper")
	assert.Contains(t, fake.prompt, "risk_level")
}

func TestGenAI_ZoneAnalysisFractionalFireCount(t *testing.T) {
	fake := &fakeModels{reply: `{"risk_score":81,"risk_level":"extreme","historical_fires":12.0,` +
		`"vegetation_index":0.22,"weather_conditions":{"temp":33,"wind":41,"humidity":12}}`}
	g := newGenAI(fake, "", discardLogger(), observability.NewMetricsForTesting())

	res, err := g.Analyze(context.Background(), Request{Prompt: "Analyze wildfire risk for Banff", Mode: ModeZone})
	require.NoError(t, err)
	require.NotNil(t, res.Zone)
	assert.Equal(t, 12, res.Zone.HistoricalFires)
	assert.Equal(t, domain.RiskExtreme, res.Zone.RiskLevel)
	assert.Equal(t, 0.22, res.Zone.VegetationIndex)

	res, err = decodeResult(`{"risk_score":40,"historical_fires":6.7}`, ModeZone)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Zone.HistoricalFires, "fractional counts are floored")
}

func TestGenAI_Predictions(t *testing.T) {
	fake := &fakeModels{reply: `{"predictions":[{"latitude":50.1,"longitude":-120.2,"risk_score":88,"reason":"wind"}]}`}
	g := newGenAI(fake, "gemini-test", discardLogger(), observability.NewMetricsForTesting())

	res, err := g.Analyze(context.Background(), Request{Prompt: "heat map", Schema: map[string]any{"required": []any{"predictions"}}})
	require.NoError(t, err)
	require.True(t, res.IsPrediction())
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, 88.0, res.Predictions[0].RiskScore)
	assert.Equal(t, "gemini-test", fake.model)
	assert.Contains(t, fake.prompt, `"predictions"`)
}

func TestGenAI_Errors(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	upstream := errors.New("quota exceeded")
	g := newGenAI(&fakeModels{err: upstream}, "", discardLogger(), metrics)
	_, err := g.Analyze(context.Background(), Request{Mode: ModeZone})
	require.ErrorIs(t, err, upstream)

	g = newGenAI(&fakeModels{reply: "not json"}, "", discardLogger(), metrics)
	_, err = g.Analyze(context.Background(), Request{Mode: ModeZone})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode zone analysis")

	g = newGenAI(&fakeModels{reply: "  "}, "", discardLogger(), metrics)
	_, err = g.Analyze(context.Background(), Request{Mode: ModePredictions})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.OracleRequests.WithLabelValues("zone", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OracleRequests.WithLabelValues("predictions", "error")))
}

func TestNewGenAI_RequiresKey(t *testing.T) {
	_, err := NewGenAI(context.Background(), "", "", discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}
