package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RiskLevel is the four-step wildfire danger scale, plus "unknown" for zones
// that were never analyzed.
type RiskLevel string

const (
	RiskUnknown  RiskLevel = "unknown"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskExtreme  RiskLevel = "extreme"
)

// Score thresholds for ClassifyRisk.
const (
	ExtremeThreshold  = 85.0
	HighThreshold     = 70.0
	ModerateThreshold = 45.0
)

// ClassifyRisk maps a 0–100 risk score to a level:
// ≥85 extreme | ≥70 high | ≥45 moderate | else low.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score >= ExtremeThreshold:
		return RiskExtreme
	case score >= HighThreshold:
		return RiskHigh
	case score >= ModerateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}

// Valid reports whether l is one of the analyzed levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskModerate, RiskHigh, RiskExtreme:
		return true
	default:
		return false
	}
}

// Alerting reports whether a zone at this level gets an alert record.
func (l RiskLevel) Alerting() bool {
	return l == RiskHigh || l == RiskExtreme
}

// AlertMessage renders the alert text for a zone, e.g.
// "HIGH RISK: Jasper National Park, AB risk score 72.4."
func AlertMessage(level RiskLevel, zoneName string, score float64) string {
	return fmt.Sprintf("%s RISK: %s risk score %s.", strings.ToUpper(string(level)), zoneName, FormatScore(score))
}

// FormatScore prints a score with the shortest exact representation (72.4, 80).
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
