package collection

import (
	"slices"
	"strings"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

// parseSort splits a sort order such as "-created_date" into field and direction.
func parseSort(order string) (field string, desc bool) {
	order = strings.TrimSpace(order)
	if strings.HasPrefix(order, "-") {
		return order[1:], true
	}
	return order, false
}

// sortRecords sorts records in place. Nothing happens when the order
// is empty or the first record lacks the field.
func sortRecords(records []domain.Record, order string) {
	field, desc := parseSort(order)
	if field == "" || len(records) == 0 {
		return
	}
	if _, ok := records[0][field]; !ok {
		return
	}
	slices.SortStableFunc(records, func(a, b domain.Record) int {
		c := compareValues(a[field], b[field])
		if desc {
			return -c
		}
		return c
	})
}

// compareValues orders two field values. nil is greater than everything, so
// it lands last ascending and first descending. Values that are not both
// numbers, both strings or both booleans compare equal.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if x, ok := domain.Number(a); ok {
		if y, ok := domain.Number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
		return 0
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return 0
}
