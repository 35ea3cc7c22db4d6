package domain

import (
	"context"
	"log/slog"
	"strings"
)

// EnrichZoneLocation attempts to fill a zone's location fields from a geocoder.
// Zones without coordinates are forward-geocoded from their name; zones with
// coordinates are reverse-geocoded for a place name. If geocoder is nil the
// zone is returned unchanged; on failure geo_source is set to "failed" and the
// zone is otherwise kept as given (graceful degradation).
func EnrichZoneLocation(ctx context.Context, zone Record, geocoder Geocoder, logger *slog.Logger) Record {
	if geocoder == nil {
		return zone
	}
	zone = zone.Clone()

	lat, _ := zone.Float("latitude")
	lon, _ := zone.Float("longitude")
	hasCoords := lat != 0 || lon != 0
	name := zone.String("name")

	// Forward geocode: zone name → coordinates (when coords are missing).
	if !hasCoords && name != "" {
		place, region := splitRegion(name)
		result, err := geocoder.ForwardGeocode(ctx, place, region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"zone", name,
				"error", err,
			)
			zone["geo_source"] = "failed"
			return zone
		}
		if result.Lat != 0 || result.Lon != 0 {
			zone["latitude"] = result.Lat
			zone["longitude"] = result.Lon
			zone["formatted_address"] = result.FormattedAddress
			zone["place_name"] = result.PlaceName
			zone["geo_confidence"] = result.Confidence
			zone["geo_source"] = "forward"
			return zone
		}
		zone["geo_source"] = "original"
		return zone
	}

	// Reverse geocode: coordinates → place details (when coords are present).
	if hasCoords {
		result, err := geocoder.ReverseGeocode(ctx, lat, lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"zone", name,
				"lat", lat,
				"lon", lon,
				"error", err,
			)
			zone["geo_source"] = "failed"
			return zone
		}
		if result.FormattedAddress != "" {
			zone["formatted_address"] = result.FormattedAddress
			zone["place_name"] = result.PlaceName
			zone["geo_confidence"] = result.Confidence
			zone["geo_source"] = "reverse"
			return zone
		}
	}

	zone["geo_source"] = "original"
	return zone
}

// splitRegion splits "Jasper National Park, AB" into ("Jasper National Park", "AB").
// Names without a trailing region are returned whole.
func splitRegion(name string) (place, region string) {
	i := strings.LastIndex(name, ",")
	if i < 0 {
		return strings.TrimSpace(name), ""
	}
	return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
}
