// Package seed provides the initial contents of every collection.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

//go:embed seeds.yaml
var seedsYAML []byte

// Set maps a collection name to its seed records.
type Set map[string][]domain.Record

// For returns the seed for collection, or nil when it has none.
func (s Set) For(collection string) []domain.Record {
	return s[collection]
}

// Load parses the embedded seed file. Every known collection is present in
// the result. Records are normalized through JSON so numbers are float64,
// as they are when read back from storage; records missing an id get
// "<collection>_<n>" and records missing timestamps get now.
func Load(now time.Time) (Set, error) {
	return parse(seedsYAML, now)
}

func parse(data []byte, now time.Time) (Set, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}

	ts := domain.FormatTimestamp(now)
	set := make(Set, len(domain.CollectionNames))
	for _, name := range domain.CollectionNames {
		set[name] = []domain.Record{}
	}
	for name, rows := range raw {
		records := make([]domain.Record, 0, len(rows))
		for i, row := range rows {
			r, err := domain.RecordFrom(row)
			if err != nil {
				return nil, fmt.Errorf("seed %s[%d]: %w", name, i, err)
			}
			if r.ID() == "" {
				r[domain.FieldID] = fmt.Sprintf("%s_%d", name, i+1)
			}
			if r.String(domain.FieldCreatedDate) == "" {
				r[domain.FieldCreatedDate] = ts
			}
			if r.String(domain.FieldUpdatedDate) == "" {
				r[domain.FieldUpdatedDate] = r[domain.FieldCreatedDate]
			}
			records = append(records, r)
		}
		set[name] = records
	}
	return set, nil
}
