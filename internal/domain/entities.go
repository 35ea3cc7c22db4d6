package domain

// Collection names.
const (
	CollectionZones               = "MonitoredZone"
	CollectionAlertConfigs        = "AlertConfig"
	CollectionAlertHistory        = "AlertHistory"
	CollectionFireDepartments     = "FireDepartment"
	CollectionEnvironmentalDamage = "EnvironmentalDamage"
	CollectionHistoricalFires     = "HistoricalFire"
	CollectionAirQuality          = "AirQuality"
)

// CollectionNames lists every collection the service manages.
var CollectionNames = []string{
	CollectionZones,
	CollectionAlertConfigs,
	CollectionAlertHistory,
	CollectionFireDepartments,
	CollectionEnvironmentalDamage,
	CollectionHistoricalFires,
	CollectionAirQuality,
}

// Zone statuses.
const (
	ZoneStatusActive = "active"
)

// Alert history statuses.
const (
	AlertStatusCreated = "created"
)

// Zone is the typed view of a MonitoredZone record.
type Zone struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Latitude          float64            `json:"latitude"`
	Longitude         float64            `json:"longitude"`
	RadiusKM          float64            `json:"radius_km,omitempty"`
	Status            string             `json:"status,omitempty"`
	RiskScore         float64            `json:"risk_score"`
	RiskLevel         RiskLevel          `json:"risk_level,omitempty"`
	WeatherConditions *WeatherConditions `json:"weather_conditions,omitempty"`
	VegetationIndex   float64            `json:"vegetation_index,omitempty"`
	HistoricalFires   int                `json:"historical_fires,omitempty"`
	AnalysisSummary   string             `json:"analysis_summary,omitempty"`
	LastAnalyzed      string             `json:"last_analyzed,omitempty"`
	FormattedAddress  string             `json:"formatted_address,omitempty"`
	PlaceName         string             `json:"place_name,omitempty"`
	GeoSource         string             `json:"geo_source,omitempty"` // "forward", "reverse", "original", "failed"
	CreatedDate       string             `json:"created_date"`
	UpdatedDate       string             `json:"updated_date"`
}

// HasCoordinates reports whether the zone has a non-zero position.
func (z Zone) HasCoordinates() bool {
	return z.Latitude != 0 || z.Longitude != 0
}

// AlertConfig is the typed view of an AlertConfig record.
type AlertConfig struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	IsActive  bool     `json:"is_active"`
	Threshold float64  `json:"threshold"`
	Channels  []string `json:"channels,omitempty"`
}

// Matches reports whether an active config asks to be notified at score.
func (c AlertConfig) Matches(score float64) bool {
	return c.IsActive && c.Threshold <= score
}

// AlertHistory is the typed view of an AlertHistory record. The zone is
// referenced by copied id and name, not by a maintained relation.
type AlertHistory struct {
	ID            string    `json:"id,omitempty"`
	ZoneID        string    `json:"zone_id"`
	ZoneName      string    `json:"zone_name"`
	RiskLevel     RiskLevel `json:"risk_level"`
	RiskScore     float64   `json:"risk_score"`
	Message       string    `json:"message"`
	Status        string    `json:"status,omitempty"`
	NotifiedCount int       `json:"notified_count"`
	CreatedDate   string    `json:"created_date,omitempty"`
}

// FireDepartment is the typed view of a FireDepartment record.
type FireDepartment struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Province     string   `json:"province"`
	City         string   `json:"city"`
	Emergency    string   `json:"emergency"`
	NonEmergency string   `json:"non_emergency"`
	Tags         []string `json:"tags,omitempty"`
}

// NewAlert builds the alert history entry for a zone analysis.
func NewAlert(zone Zone, analysis ZoneAnalysis, notified int) AlertHistory {
	return AlertHistory{
		ZoneID:        zone.ID,
		ZoneName:      zone.Name,
		RiskLevel:     analysis.RiskLevel,
		RiskScore:     analysis.RiskScore,
		Message:       AlertMessage(analysis.RiskLevel, zone.Name, analysis.RiskScore),
		Status:        AlertStatusCreated,
		NotifiedCount: notified,
	}
}

// ZoneDefaults are applied to new zones over caller data.
func ZoneDefaults() Record {
	return Record{
		"status":     ZoneStatusActive,
		"risk_level": string(RiskUnknown),
		"risk_score": 0.0,
	}
}
