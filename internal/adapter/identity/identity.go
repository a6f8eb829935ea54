// Package identity converts between a model's identity field and the store's
// locator field, and decides which fields a projection keeps.
package identity

import (
	"slices"

	"github.com/peixotoh/docshim/domain"
)

// ToLocator extracts the locator carried by the record's identity field. The
// second return is false when the field is absent or not a string, which
// signals create-mode.
func ToLocator(idField string, record domain.Record) (string, bool) {
	locator, ok := record[idField].(string)
	if !ok || locator == "" {
		return "", false
	}
	return locator, true
}

// ApplyLocator writes the locator into the record's identity field. When the
// identity field is the locator field itself, the record already carries the
// value under that name and no duplicate field is introduced.
func ApplyLocator(record domain.Record, locator, idField string) {
	if idField == domain.LocatorField {
		record[domain.LocatorField] = locator
		return
	}
	record[idField] = locator
}

// StripLocator removes the store-native locator field once the identity field
// carries the value. When the identity field literally is the locator field,
// they are the same field and nothing is stripped.
func StripLocator(record domain.Record, idField string) {
	if idField == domain.LocatorField {
		return
	}
	delete(record, domain.LocatorField)
}

// IncludeIdentity reports whether the identity field belongs in a projected
// result. With no projection every field is kept. An inclusion list keeps the
// identity field only when listed. A projection map keeps it according to its
// own marker when listed; otherwise the first field's truthiness (in key
// order) decides the default for every unlisted field, so a predominantly
// exclusion-style map keeps the identity field and an inclusion-style map
// drops it.
func IncludeIdentity(projection any, idField string) bool {
	switch p := projection.(type) {
	case nil:
		return true
	case []string:
		return slices.Contains(p, idField)
	case domain.Record:
		if len(p) == 0 {
			return true
		}
		if marker, ok := p[idField]; ok {
			return truthy(marker)
		}
		return !truthy(p[firstKey(p)])
	default:
		return true
	}
}

// Project applies a projection to a record, returning a fresh record. The
// identity field follows [IncludeIdentity]; other fields follow the
// projection's inclusion or exclusion style, unlisted fields defaulting to
// the first field's truthiness.
func Project(record domain.Record, projection any, idField string) domain.Record {
	switch p := projection.(type) {
	case []string:
		res := make(domain.Record, len(p))
		for _, field := range p {
			if value, ok := record[field]; ok {
				res[field] = value
			}
		}
		return res
	case domain.Record:
		if len(p) == 0 {
			return record
		}
		include := !truthy(p[firstKey(p)])
		res := make(domain.Record, len(record))
		for field, value := range record {
			marker, listed := p[field]
			keep := include
			if listed {
				keep = truthy(marker)
			}
			if field == idField {
				keep = IncludeIdentity(p, idField)
			}
			if keep {
				res[field] = value
			}
		}
		return res
	default:
		return record
	}
}

func firstKey(p domain.Record) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys[0]
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case uint8:
		return t != 0
	case string:
		return t != "" && t != "0" && t != "false"
	default:
		return true
	}
}
