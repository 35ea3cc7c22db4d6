package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

// DefaultGenAIModel is used when no model is configured.
const DefaultGenAIModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAI asks a Gemini model for analyses and decodes its JSON reply.
type GenAI struct {
	models  contentGenerator
	model   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ Oracle = (*GenAI)(nil)

// NewGenAI creates a GenAI oracle using the Gemini API.
func NewGenAI(ctx context.Context, apiKey, model string, logger *slog.Logger, metrics *observability.Metrics) (*GenAI, error) {
	if apiKey == "" {
		return nil, errors.New("genai api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGenAI(client.Models, model, logger, metrics), nil
}

func newGenAI(models contentGenerator, model string, logger *slog.Logger, metrics *observability.Metrics) *GenAI {
	if model == "" {
		model = DefaultGenAIModel
	}
	return &GenAI{models: models, model: model, logger: logger, metrics: metrics}
}

const (
	zoneInstructions = `Respond with a single JSON object with the fields risk_score (0-100, one decimal), ` +
		`risk_level (low, moderate, high or extreme), vegetation_index (0-1), historical_fires (integer), ` +
		`weather_conditions {temp, wind, humidity} and analysis_summary.`
	predictionInstructions = `Respond with a JSON object {"predictions": [...]} of %d hotspots inside ` +
		`latitude [%g, %g) and longitude [%g, %g), each with latitude, longitude, risk_score (0-100) and reason.`
)

// Analyze sends the prompt with JSON output instructions and decodes the reply.
func (g *GenAI) Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error) {
	mode := req.resolvedMode()
	start := time.Now()

	result, err := g.analyze(ctx, req, mode)
	if err != nil {
		g.metrics.OracleRequests.WithLabelValues(mode.String(), "error").Inc()
		return domain.AnalysisResult{}, err
	}
	g.metrics.OracleRequests.WithLabelValues(mode.String(), "success").Inc()
	g.metrics.OracleDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	return result, nil
}

func (g *GenAI) analyze(ctx context.Context, req Request, mode Mode) (domain.AnalysisResult, error) {
	prompt := g.prompt(req, mode)
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return domain.AnalysisResult{}, errors.New("generate content: empty response")
	}
	g.logger.Debug("genai analysis", "mode", mode.String(), "model", g.model, "bytes", len(text))
	return decodeResult(text, mode)
}

func (g *GenAI) prompt(req Request, mode Mode) string {
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\n")
	if mode == ModePredictions {
		fmt.Fprintf(&b, predictionInstructions, PredictionCount, MinLatitude, MaxLatitude, MinLongitude, MaxLongitude)
	} else {
		b.WriteString(zoneInstructions)
	}
	if len(req.Schema) > 0 {
		if schema, err := json.Marshal(req.Schema); err == nil {
			b.WriteString("\nThe reply must validate against this JSON schema: ")
			b.Write(schema)
		}
	}
	return b.String()
}

// decodeResult parses a model reply. Markdown code fences are tolerated and a
// missing or unknown risk level is derived from the score.
func decodeResult(text string, mode Mode) (domain.AnalysisResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	if mode == ModePredictions {
		var payload struct {
			Predictions []domain.Prediction `json:"predictions"`
		}
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return domain.AnalysisResult{}, fmt.Errorf("decode predictions: %w", err)
		}
		if payload.Predictions == nil {
			payload.Predictions = []domain.Prediction{}
		}
		return domain.AnalysisResult{Predictions: payload.Predictions}, nil
	}

	// Models may send historical_fires as 12.0; the outer field wins over
	// the embedded int.
	var reply struct {
		domain.ZoneAnalysis
		HistoricalFires float64 `json:"historical_fires"`
	}
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("decode zone analysis: %w", err)
	}
	zone := reply.ZoneAnalysis
	zone.HistoricalFires = int(math.Floor(reply.HistoricalFires))
	if !zone.RiskLevel.Valid() {
		zone.RiskLevel = domain.ClassifyRisk(zone.RiskScore)
	}
	return domain.AnalysisResult{Zone: &zone}, nil
}
