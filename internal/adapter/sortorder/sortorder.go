// Package sortorder parses ordered field lists into sort rules.
package sortorder

import (
	"strings"

	"github.com/peixotoh/docshim/domain"
)

// Default is the ordering applied when a read requests none: locator
// ascending.
func Default() []domain.SortName {
	return []domain.SortName{{Key: domain.LocatorField, Order: 1}}
}

// Parse converts sort entries of the form "field", "field ASC" or
// "field DESC" into sort rules. The direction token is case-insensitive.
func Parse(entries []string) ([]domain.SortName, error) {
	res := make([]domain.SortName, 0, len(entries))
	for _, entry := range entries {
		field, direction, found := strings.Cut(strings.TrimSpace(entry), " ")
		if field == "" {
			return nil, &domain.ErrBadSortEntry{Entry: entry}
		}
		order := int64(1)
		if found {
			switch strings.ToUpper(strings.TrimSpace(direction)) {
			case "ASC":
			case "DESC":
				order = -1
			default:
				return nil, &domain.ErrBadSortEntry{Entry: entry}
			}
		}
		res = append(res, domain.SortName{Key: field, Order: order})
	}
	return res, nil
}
