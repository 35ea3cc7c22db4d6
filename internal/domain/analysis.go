package domain

// WeatherConditions are the simulated weather drivers of a zone analysis.
type WeatherConditions struct {
	Temp     float64 `json:"temp"`
	Wind     float64 `json:"wind"`
	Humidity float64 `json:"humidity"`
}

// ZoneAnalysis is the single-zone risk assessment produced by an oracle.
type ZoneAnalysis struct {
	RiskScore         float64           `json:"risk_score"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	VegetationIndex   float64           `json:"vegetation_index"`
	HistoricalFires   int               `json:"historical_fires"`
	WeatherConditions WeatherConditions `json:"weather_conditions"`
	AnalysisSummary   string            `json:"analysis_summary"`
}

// Patch returns the zone fields to persist for this analysis, stamped with
// the given last_analyzed timestamp.
func (a ZoneAnalysis) Patch(analyzedAt string) Record {
	return Record{
		"risk_score": a.RiskScore,
		"risk_level": string(a.RiskLevel),
		"weather_conditions": map[string]any{
			"temp":     a.WeatherConditions.Temp,
			"wind":     a.WeatherConditions.Wind,
			"humidity": a.WeatherConditions.Humidity,
		},
		"vegetation_index": a.VegetationIndex,
		"historical_fires": a.HistoricalFires,
		"analysis_summary": a.AnalysisSummary,
		"last_analyzed":    analyzedAt,
	}
}

// Prediction is one heat-map hotspot.
type Prediction struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RiskScore float64 `json:"risk_score"`
	Reason    string  `json:"reason"`
}

// AnalysisResult is the output of an oracle call. Exactly one of Zone or
// Predictions is set.
type AnalysisResult struct {
	Zone        *ZoneAnalysis `json:"zone,omitempty"`
	Predictions []Prediction  `json:"predictions,omitempty"`
}

// IsPrediction reports whether the result is a batch prediction.
func (r AnalysisResult) IsPrediction() bool {
	return r.Zone == nil
}

// Payload returns the wire shape of the result: the zone analysis fields at
// the top level, or {"predictions": [...]}.
func (r AnalysisResult) Payload() any {
	if r.Zone != nil {
		return r.Zone
	}
	preds := r.Predictions
	if preds == nil {
		preds = []Prediction{}
	}
	return map[string][]Prediction{"predictions": preds}
}
