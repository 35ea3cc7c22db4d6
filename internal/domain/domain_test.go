package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		score    float64
		expected RiskLevel
	}{
		{0, RiskLow},
		{44.9, RiskLow},
		{45, RiskModerate},
		{69.9, RiskModerate},
		{70, RiskHigh},
		{84.9, RiskHigh},
		{85, RiskExtreme},
		{100, RiskExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyRisk(tt.score), "score %v", tt.score)
	}
}

func TestRiskLevel_Alerting(t *testing.T) {
	assert.True(t, RiskExtreme.Alerting())
	assert.True(t, RiskHigh.Alerting())
	assert.False(t, RiskModerate.Alerting())
	assert.False(t, RiskLow.Alerting())
	assert.False(t, RiskUnknown.Alerting())
	assert.False(t, RiskUnknown.Valid())
}

func TestAlertMessage(t *testing.T) {
	assert.Equal(t, "HIGH RISK: Jasper National Park, AB risk score 72.4.",
		AlertMessage(RiskHigh, "Jasper National Park, AB", 72.4))
	assert.Equal(t, "EXTREME RISK: Banff risk score 90.",
		AlertMessage(RiskExtreme, "Banff", 90))
}

func TestRecord_Merge(t *testing.T) {
	base := Record{FieldID: "z1", FieldCreatedDate: "c", "name": "A", "radius_km": 30.0}

	merged := base.Merge(Record{FieldID: "other", FieldCreatedDate: "x", "name": "B", "status": "active"})

	assert.Equal(t, "z1", merged.ID())
	assert.Equal(t, "c", merged[FieldCreatedDate])
	assert.Equal(t, "B", merged["name"])
	assert.Equal(t, 30.0, merged["radius_km"])
	assert.Equal(t, "active", merged["status"])
	assert.Equal(t, "A", base["name"], "merge must not mutate the receiver")
}

func TestRecord_DecodeZone(t *testing.T) {
	r := Record{
		FieldID:      "zone_jasper",
		"name":       "Jasper National Park, AB",
		"latitude":   52.8734,
		"risk_score": 52.0,
		"risk_level": "moderate",
		"weather_conditions": map[string]any{
			"temp": 26.0, "wind": 24.0, "humidity": 38.0,
		},
		"custom": "kept",
	}

	var z Zone
	require.NoError(t, r.Decode(&z))

	assert.Equal(t, "zone_jasper", z.ID)
	assert.Equal(t, RiskModerate, z.RiskLevel)
	assert.Equal(t, 52.0, z.RiskScore)
	require.NotNil(t, z.WeatherConditions)
	assert.Equal(t, 24.0, z.WeatherConditions.Wind)
	assert.True(t, z.HasCoordinates())
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2.5), 2.5, true},
		{"int", 3, 3, true},
		{"int8", int8(-4), -4, true},
		{"int16", int16(500), 500, true},
		{"int32", int32(6), 6, true},
		{"int64", int64(7), 7, true},
		{"uint", uint(8), 8, true},
		{"uint8", uint8(9), 9, true},
		{"uint16", uint16(10), 10, true},
		{"uint32", uint32(11), 11, true},
		{"uint64", uint64(12), 12, true},
		{"json.Number", json.Number("13.5"), 13.5, true},
		{"bad json.Number", json.Number("x"), 0, false},
		{"string", "14", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordFrom_NormalizesNumbers(t *testing.T) {
	r, err := RecordFrom(NewAlert(Zone{ID: "z1", Name: "Banff"}, ZoneAnalysis{RiskScore: 88.1, RiskLevel: RiskExtreme}, 2))
	require.NoError(t, err)

	assert.Equal(t, "z1", r["zone_id"])
	assert.Equal(t, "extreme", r["risk_level"])
	assert.Equal(t, 2.0, r["notified_count"])
	assert.Equal(t, "EXTREME RISK: Banff risk score 88.1.", r["message"])
	assert.NotContains(t, r, FieldID)
}

func TestAlertConfig_Matches(t *testing.T) {
	cfg := AlertConfig{IsActive: true, Threshold: 70}
	assert.True(t, cfg.Matches(70))
	assert.False(t, cfg.Matches(69.9))
	cfg.IsActive = false
	assert.False(t, cfg.Matches(99))
}

func TestZoneAnalysis_Patch(t *testing.T) {
	a := ZoneAnalysis{
		RiskScore:         76.5,
		RiskLevel:         RiskHigh,
		VegetationIndex:   0.3,
		HistoricalFires:   9,
		WeatherConditions: WeatherConditions{Temp: 30, Wind: 29, Humidity: 19},
		AnalysisSummary:   "summary",
	}

	patch := a.Patch("2025-01-16T11:30:00.000Z")

	assert.Equal(t, 76.5, patch["risk_score"])
	assert.Equal(t, "high", patch["risk_level"])
	assert.Equal(t, "2025-01-16T11:30:00.000Z", patch["last_analyzed"])
	assert.Equal(t, map[string]any{"temp": 30.0, "wind": 29.0, "humidity": 19.0}, patch["weather_conditions"])
}

func TestTimestamp_UsesClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 1, 16, 11, 30, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, "2025-01-16T11:30:00.000Z", Timestamp())
	fake.Advance(1500 * time.Millisecond)
	assert.Equal(t, "2025-01-16T11:30:01.500Z", Timestamp())
}
