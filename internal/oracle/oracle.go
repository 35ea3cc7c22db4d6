// Package oracle produces wildfire risk analyses: single-zone assessments and
// heat-map hotspot predictions. Simulated generates plausible random values;
// GenAI asks a Gemini model for the same shapes.
package oracle

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

// Mode selects the result shape.
type Mode int

const (
	// ModeAuto infers the shape from the schema and prompt.
	ModeAuto Mode = iota
	// ModeZone always returns a zone analysis.
	ModeZone
	// ModePredictions always returns hotspot predictions.
	ModePredictions
)

// String returns the metric label for the mode.
func (m Mode) String() string {
	switch m {
	case ModeZone:
		return "zone"
	case ModePredictions:
		return "predictions"
	default:
		return "auto"
	}
}

// Request is one analysis call. Schema is the caller's requested JSON shape;
// only its mention of "predictions" matters to the simulated oracle.
type Request struct {
	Prompt string         `json:"prompt"`
	Schema map[string]any `json:"response_json_schema,omitempty"`
	Mode   Mode           `json:"-"`
}

var predictionPrompt = regexp.MustCompile(`(?i)predict|predictions|hotspots|heat map`)

// WantsPredictions reports whether the request resolves to predictions mode.
func (r Request) WantsPredictions() bool {
	switch r.Mode {
	case ModePredictions:
		return true
	case ModeZone:
		return false
	}
	if len(r.Schema) > 0 {
		schema, err := json.Marshal(r.Schema)
		if err == nil && strings.Contains(string(schema), "predictions") {
			return true
		}
	}
	return predictionPrompt.MatchString(r.Prompt)
}

func (r Request) resolvedMode() Mode {
	if r.WantsPredictions() {
		return ModePredictions
	}
	return ModeZone
}

// Oracle analyzes wildfire risk.
type Oracle interface {
	Analyze(ctx context.Context, req Request) (domain.AnalysisResult, error)
}
