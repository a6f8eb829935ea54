// Package record converts caller-supplied values into [domain.Record]
// mappings. Structs are walked reflectively so callers can hand Create and
// Save either maps or their own model types.
package record

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/peixotoh/docshim/domain"
)

// TagName is the struct tag consulted for field names and modifiers.
const TagName = "docshim"

var timeTyp = goreflect.TypeOf(*new(time.Time))

// New converts a value into a fresh Record. Maps are shallow-copied; structs
// are converted field by field, honoring the docshim tag: the first tag
// segment renames the field, ",omitempty" skips nil values and ",omitzero"
// skips uninitialized ones. Unexported fields are ignored. A nil input yields
// an empty record.
func New(in any) (domain.Record, error) {
	if in == nil {
		return domain.Record{}, nil
	}
	if rec, ok := in.(domain.Record); ok {
		res := make(domain.Record, len(rec))
		for k, v := range rec {
			res[k] = v
		}
		return res, nil
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == reflect.Pointer {
		if r.IsNil() {
			return domain.Record{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if k != goreflect.Struct && k != goreflect.Map {
		return nil, fmt.Errorf("expected map or struct, got %s", r.Type().String())
	}
	parsed, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	rec, ok := parsed.(domain.Record)
	if !ok {
		return nil, fmt.Errorf("expected map or struct, got %s", r.Type().String())
	}
	return rec, nil
}

func parseReflect(r goreflect.Value) (any, error) {
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMap(r)
	case goreflect.Chan, goreflect.Func:
		return nil, fmt.Errorf("cannot store a %s in a record", r.Kind())
	default:
		return r.Interface(), nil
	}
}

func parseStruct(r goreflect.Value) (domain.Record, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(domain.Record, numField)
	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name, value, keep, err := parseField(r.Field(n), field)
		if err != nil {
			return nil, err
		}
		if keep {
			res[name] = value
		}
	}
	return res, nil
}

func parseField(r goreflect.Value, typ goreflect.StructField) (string, any, bool, error) {
	name := typ.Name
	var segments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return "", nil, false, nil
		}
		segments = strings.Split(tag, ",")
		if segments[0] != "" {
			name = segments[0]
		}
		segments = segments[1:]
	}
	if slices.Contains(segments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return "", nil, false, nil
	}
	if slices.Contains(segments, "omitzero") && r.IsZero() {
		return "", nil, false, nil
	}

	value, err := parseReflect(r)
	if err != nil {
		return "", nil, false, err
	}
	return name, value, true, nil
}

func parseMap(r goreflect.Value) (domain.Record, error) {
	if r.Type().Key().Kind() != goreflect.String {
		return nil, fmt.Errorf("record keys must be strings, got %s", r.Type().Key())
	}
	res := make(domain.Record, r.Len())
	for _, k := range r.MapKeys() {
		value, err := parseReflect(r.MapIndex(k))
		if err != nil {
			return nil, err
		}
		res[k.String()] = value
	}
	return res, nil
}

func parseList(r goreflect.Value) (any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		value, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = value
	}
	return res, nil
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}
