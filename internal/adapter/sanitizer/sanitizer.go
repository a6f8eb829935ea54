// Package sanitizer guards update payloads against operator injection. Caller
// keys are only interpreted as store-native mutation directives when the
// extended-operators flag is on, and even then only a fixed allow-list of
// operators is forwarded.
package sanitizer

import "github.com/peixotoh/docshim/domain"

// setOperator wraps plain field values so the store merges instead of
// replacing.
const setOperator = "$set"

// allowed is the fixed allow-list of field-mutation operators.
var allowed = map[string]struct{}{
	"$set":         {},
	"$unset":       {},
	"$inc":         {},
	"$rename":      {},
	"$min":         {},
	"$max":         {},
	"$mul":         {},
	"$setOnInsert": {},
	"$addToSet":    {},
	"$pop":         {},
	"$pull":        {},
	"$pullAll":     {},
	"$push":        {},
	"$pushAll":     {},
	"$bit":         {},
}

// Sanitize converts an update payload into a native update document. With
// extended operators off the whole payload is wrapped under the set-fields
// operator regardless of content. With extended operators on, recognized
// operator keys are forwarded each under its own key; when none match, the
// payload again wraps under set-fields.
func Sanitize(values domain.Record, extended bool) domain.Record {
	if !extended {
		return domain.Record{setOperator: values}
	}

	update := make(domain.Record, len(values))
	for key, value := range values {
		if _, ok := allowed[key]; ok {
			update[key] = value
		}
	}
	if len(update) == 0 {
		return domain.Record{setOperator: values}
	}
	return update
}
