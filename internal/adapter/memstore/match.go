package memstore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// nullType is the operand of the native null/undefined type test.
const nullType = 10

// match reports whether a document satisfies a native query. The supported
// dialect is exactly what the adapter's translator emits: literal equality,
// the comparison and membership operators, regular expression matches and the
// $and/$or/$nor combinators. Fields are matched at the top level; the adapter
// never emits dot-notation paths.
func match(doc map[string]any, query map[string]any) (bool, error) {
	for key, condition := range query {
		var ok bool
		var err error
		switch key {
		case "$and":
			ok, err = matchAll(doc, condition, true)
		case "$or":
			ok, err = matchAny(doc, condition)
		case "$nor":
			ok, err = matchAll(doc, condition, false)
		default:
			ok, err = matchField(doc, key, condition)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAll(doc map[string]any, condition any, want bool) (bool, error) {
	nested, ok := condition.([]any)
	if !ok {
		return false, fmt.Errorf("combinator used without an array")
	}
	for _, item := range nested {
		sub, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Errorf("combinator entries must be objects")
		}
		matches, err := match(doc, sub)
		if err != nil {
			return false, err
		}
		if matches != want {
			return false, nil
		}
	}
	return true, nil
}

func matchAny(doc map[string]any, condition any) (bool, error) {
	nested, ok := condition.([]any)
	if !ok {
		return false, fmt.Errorf("combinator used without an array")
	}
	for _, item := range nested {
		sub, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Errorf("combinator entries must be objects")
		}
		matches, err := match(doc, sub)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func matchField(doc map[string]any, field string, condition any) (bool, error) {
	value, present := doc[field]

	ops, isOps := operatorClause(condition)
	if !isOps {
		return equal(value, condition), nil
	}

	for op, operand := range ops {
		if op == "$options" {
			continue
		}
		ok, err := matchOp(op, value, present, operand, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOp(op string, value any, present bool, operand any, clause map[string]any) (bool, error) {
	switch op {
	case "$gt", "$gte", "$lt", "$lte":
		c, ok := compare(value, operand)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case "$ne":
		return !equal(value, operand), nil
	case "$in":
		values, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("$in operator called with a non-array")
		}
		for _, item := range values {
			if equal(value, item) {
				return true, nil
			}
		}
		return false, nil
	case "$nin":
		values, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("$nin operator called with a non-array")
		}
		for _, item := range values {
			if equal(value, item) {
				return false, nil
			}
		}
		return true, nil
	case "$regex":
		return matchRegex(value, operand, clause["$options"])
	case "$not":
		sub, ok := operand.(map[string]any)
		if !ok {
			return false, fmt.Errorf("$not operator requires an object")
		}
		for op, arg := range sub {
			if op == "$options" {
				continue
			}
			matches, err := matchOp(op, value, present, arg, sub)
			if err != nil {
				return false, err
			}
			if matches {
				return false, nil
			}
		}
		return true, nil
	case "$type":
		if n, ok := asFloat(operand); ok && n == nullType {
			return present && value == nil, nil
		}
		return false, fmt.Errorf("unsupported $type operand %v", operand)
	case "$exists":
		want, _ := operand.(bool)
		return present == want, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %s", op)
	}
}

func matchRegex(value any, operand any, options any) (bool, error) {
	pattern, ok := operand.(string)
	if !ok {
		return false, fmt.Errorf("$regex operator called with a non-string pattern")
	}
	if flags, ok := options.(string); ok && strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}
	rgx, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	str, ok := value.(string)
	if !ok {
		return false, nil
	}
	return rgx.MatchString(str), nil
}

// operatorClause reports whether a condition is an operator object. Mixing
// operators and plain fields never happens in translated queries; an object
// counts as operators when every key is dollar-prefixed.
func operatorClause(condition any) (map[string]any, bool) {
	obj, ok := condition.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, false
	}
	for key := range obj {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return obj, true
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two scalar values. The second return is false when the
// values are not comparable with each other.
func compare(a, b any) (int, bool) {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	switch at := a.(type) {
	case string:
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(at, bs), true
	case bool:
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case at == bb:
			return 0, true
		case at:
			return 1, true
		default:
			return -1, true
		}
	case time.Time:
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	case nil:
		if b == nil {
			return 0, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
