// Package translator converts abstract filter expressions into the store's
// native query representation.
package translator

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/peixotoh/docshim/domain"
)

// Abstract operator tags accepted in filter clauses. Any other tag passes
// through verbatim as a native operator with the same name, which keeps the
// translator open to store dialect extensions.
const (
	tagBetween = "between"
	tagInq     = "inq"
	tagLike    = "like"
	tagNotLike = "nlike"
	tagNotEq   = "ne"
	tagOptions = "options"
)

// nullTypeTag is the native "is null/undefined type" test operand.
const nullTypeTag = 10

type clauseFn func(operand any, options any) any

// Translator converts filter expressions into native queries. It is pure:
// translation performs no IO and never mutates its input.
type Translator struct {
	logger  *zap.Logger
	clauses map[string]clauseFn
}

// New returns a new Translator. The logger records malformed-filter recovery
// and defaults to a no-op logger.
func New(logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Translator{logger: logger}
	t.clauses = map[string]clauseFn{
		tagBetween: t.between,
		tagInq:     t.inq,
		tagLike:    t.like,
		tagNotLike: t.notLike,
		tagNotEq:   t.notEq,
	}
	return t
}

// Translate converts a filter expression into a native query. Keys equal to
// identityField are rewritten to the store's locator field. A filter that is
// not a structured mapping degrades to an empty query, matching every
// document, rather than failing the read.
//
// A clause mapping with more than one operator tag uses the first tag in key
// order; the remaining tags are ignored.
func (t *Translator) Translate(identityField string, filter any) domain.Record {
	where, ok := asRecord(filter)
	if !ok {
		if filter != nil {
			t.logger.Debug("filter is not a structured mapping, matching all",
				zap.Any("filter", filter))
		}
		return domain.Record{}
	}

	query := make(domain.Record, len(where))
	for field, value := range where {
		if field == identityField {
			field = domain.LocatorField
		}
		if native, ok := t.combinator(identityField, field, value); ok {
			query[native.field] = native.value
			continue
		}
		query[field] = t.value(value)
	}
	return query
}

type nativeEntry struct {
	field string
	value any
}

func (t *Translator) combinator(identityField, field string, value any) (nativeEntry, bool) {
	var native string
	switch field {
	case "and":
		native = "$and"
	case "or":
		native = "$or"
	case "nor":
		native = "$nor"
	default:
		return nativeEntry{}, false
	}

	nested, ok := asSequence(value)
	if !ok {
		t.logger.Debug("combinator used without a sequence, dropping it",
			zap.String("combinator", field))
		return nativeEntry{field: native, value: []any{}}, true
	}

	translated := make([]any, len(nested))
	for n, item := range nested {
		translated[n] = t.Translate(identityField, item)
	}
	return nativeEntry{field: native, value: translated}, true
}

func (t *Translator) value(value any) any {
	if value == nil {
		return domain.Record{"$type": nullTypeTag}
	}

	clause, ok := asRecord(value)
	if !ok {
		return value
	}

	tag, operand, ok := firstOperator(clause)
	if !ok || strings.HasPrefix(tag, "$") {
		// no operator keys, or already carrying native tokens; passes
		// through untouched
		return value
	}

	if fn, ok := t.clauses[tag]; ok {
		return fn(operand, clause[tagOptions])
	}
	return domain.Record{"$" + tag: operand}
}

// firstOperator picks the clause's operator tag. Keys are visited in sorted
// order so that the "first key wins" rule is deterministic; the options key
// never counts as an operator.
func firstOperator(clause domain.Record) (string, any, bool) {
	keys := make([]string, 0, len(clause))
	for k := range clause {
		if k != tagOptions {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", nil, false
	}
	slices.Sort(keys)
	return keys[0], clause[keys[0]], true
}

// between yields an inclusive both-sided bound. Operands that are not a
// two-element sequence pass through as an equality on the original clause.
func (t *Translator) between(operand any, _ any) any {
	bounds, ok := asSequence(operand)
	if !ok || len(bounds) != 2 {
		t.logger.Debug("between clause without a [low, high] pair",
			zap.Any("operand", operand))
		return domain.Record{tagBetween: operand}
	}
	return domain.Record{"$gte": bounds[0], "$lte": bounds[1]}
}

func (t *Translator) inq(operand any, _ any) any {
	values, ok := asSequence(operand)
	if !ok {
		values = []any{operand}
	}
	return domain.Record{"$in": values}
}

func (t *Translator) like(operand any, options any) any {
	match := domain.Record{"$regex": operand}
	if flags, ok := options.(string); ok && flags != "" {
		match["$options"] = flags
	}
	return match
}

func (t *Translator) notLike(operand any, options any) any {
	return domain.Record{"$not": t.like(operand, options)}
}

func (t *Translator) notEq(operand any, _ any) any {
	return domain.Record{"$ne": operand}
}

func asRecord(v any) (domain.Record, bool) {
	switch m := v.(type) {
	case domain.Record:
		return m, true
	default:
		return nil, false
	}
}

func asSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []domain.Record:
		res := make([]any, len(s))
		for n, item := range s {
			res[n] = item
		}
		return res, true
	case []string:
		res := make([]any, len(s))
		for n, item := range s {
			res[n] = item
		}
		return res, true
	case []int:
		res := make([]any, len(s))
		for n, item := range s {
			res[n] = item
		}
		return res, true
	case []float64:
		res := make([]any, len(s))
		for n, item := range s {
			res[n] = item
		}
		return res, true
	default:
		return nil, false
	}
}
