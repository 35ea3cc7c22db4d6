package monitor

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/wildfire-watch-service/internal/collection"
	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

// Summary sizes.
const (
	summaryTopZones     = 4
	summaryRecentAlerts = 10
)

// Summary is the dashboard overview.
type Summary struct {
	TotalZones         int             `json:"total_zones"`
	ExtremeZones       int             `json:"extreme_zones"`
	HighZones          int             `json:"high_zones"`
	AverageRisk        float64         `json:"average_risk"`
	TopZones           []domain.Record `json:"top_zones"`
	RecentAlerts       []domain.Record `json:"recent_alerts"`
	ActiveAlertConfigs int             `json:"active_alert_configs"`
}

// Summary computes zone counts by level, the mean risk score, the riskiest
// zones with a positive score, the latest alerts and the active config count.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	zones, err := s.zones.List(ctx, collection.ListOptions{Sort: "-risk_score", Limit: -1})
	if err != nil {
		return Summary{}, fmt.Errorf("list zones: %w", err)
	}
	alerts, err := s.history.List(ctx, collection.ListOptions{Sort: "-" + domain.FieldCreatedDate, Limit: summaryRecentAlerts})
	if err != nil {
		return Summary{}, fmt.Errorf("list alerts: %w", err)
	}
	configs, err := s.configs.List(ctx, collection.ListOptions{Limit: -1})
	if err != nil {
		return Summary{}, fmt.Errorf("list alert configs: %w", err)
	}

	sum := Summary{
		TotalZones:   len(zones),
		TopZones:     []domain.Record{},
		RecentAlerts: alerts,
	}
	var total float64
	for _, z := range zones {
		switch domain.RiskLevel(z.String("risk_level")) {
		case domain.RiskExtreme:
			sum.ExtremeZones++
		case domain.RiskHigh:
			sum.HighZones++
		}
		score, _ := z.Float("risk_score")
		total += score
		if score > 0 && len(sum.TopZones) < summaryTopZones {
			sum.TopZones = append(sum.TopZones, z)
		}
	}
	if len(zones) > 0 {
		sum.AverageRisk = math.Round(total/float64(len(zones))*10) / 10
	}
	for _, r := range configs {
		if active, _ := r["is_active"].(bool); active {
			sum.ActiveAlertConfigs++
		}
	}
	return sum, nil
}
