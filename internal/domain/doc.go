// Package domain models wildfire-risk monitoring data.
//
// # Records
//
// Every entity is a free-form [Record] stored in a named collection. The
// store guarantees three fields on each record:
//
//	id            generated UUID, immutable
//	created_date  set once at creation
//	updated_date  refreshed on every update
//
// Timestamps are ISO-8601 UTC with milliseconds ("2025-01-16T11:30:00.000Z"),
// so they order correctly as strings. Typed views ([Zone], [AlertConfig],
// [AlertHistory], [FireDepartment]) are decoded from records where logic
// needs specific fields; unknown fields stay on the record untouched.
//
// # Risk Scale
//
// A risk score is 0–100. [ClassifyRisk] maps it to a level:
//
//	≥85 extreme | ≥70 high | ≥45 moderate | else low
//
// Zones that were never analyzed carry "unknown". High and extreme zones get
// an alert history entry when analyzed; the alert copies the zone id and name,
// so deleting a zone leaves its alerts in place.
//
// # Coordinates
//
// Latitude/longitude are WGS-84 decimal degrees. Zones created without
// coordinates can be forward-geocoded from their name; zones with coordinates
// are reverse-geocoded for a place name. See [EnrichZoneLocation].
package domain
