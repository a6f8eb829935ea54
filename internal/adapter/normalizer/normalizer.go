// Package normalizer converts heterogeneous store responses into the
// adapter's uniform result contract.
package normalizer

import (
	"go.uber.org/zap"

	"github.com/peixotoh/docshim/domain"
	"github.com/peixotoh/docshim/internal/adapter/identity"
)

// Normalizer converts raw store responses into records and write metadata.
// Store-level errors never reach it; every path here received a successful
// response of an unknown shape.
type Normalizer struct {
	logger *zap.Logger
}

// New returns a new Normalizer. Unrecognized acknowledgement shapes are
// logged through the given logger, which defaults to a no-op logger.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// WriteMeta derives write metadata from an acknowledgement. The second return
// is false for unrecognized shapes; those are logged and the metadata left
// undefined rather than guessed.
func (n *Normalizer) WriteMeta(ack any) (domain.WriteMeta, bool) {
	switch a := ack.(type) {
	case domain.WriteAck:
		return domain.WriteMeta{
			IsNewRecord:   !a.UpdatedExisting,
			AffectedCount: a.Affected,
		}, true
	case *domain.WriteAck:
		if a == nil {
			break
		}
		return domain.WriteMeta{
			IsNewRecord:   !a.UpdatedExisting,
			AffectedCount: a.Affected,
		}, true
	case map[string]any:
		affected, ok := asInt64(a["n"])
		if !ok {
			break
		}
		updated, _ := a["updatedExisting"].(bool)
		return domain.WriteMeta{
			IsNewRecord:   !updated,
			AffectedCount: affected,
		}, true
	}
	n.logger.Warn("unrecognized write acknowledgement shape",
		zap.Any("ack", ack))
	return domain.WriteMeta{}, false
}

// Locator extracts the document address assigned by a write. Empty when the
// acknowledgement shape carries none.
func (n *Normalizer) Locator(ack any) string {
	switch a := ack.(type) {
	case domain.WriteAck:
		return a.Locator
	case *domain.WriteAck:
		if a != nil {
			return a.Locator
		}
	case map[string]any:
		if loc, ok := a[domain.LocatorField].(string); ok {
			return loc
		}
	}
	return ""
}

// Records converts a store enumeration into output records: each record is
// tagged with its locator through the identity field, projected, and stripped
// of the internal locator field when the projection keeps the identity.
func (n *Normalizer) Records(docs []domain.Record, projection any, idField string) []domain.Record {
	res := make([]domain.Record, len(docs))
	for i, doc := range docs {
		record := make(domain.Record, len(doc))
		for k, v := range doc {
			record[k] = v
		}
		if locator, ok := record[domain.LocatorField].(string); ok {
			identity.ApplyLocator(record, locator, idField)
		}
		record = identity.Project(record, projection, idField)
		identity.StripLocator(record, idField)
		if !identity.IncludeIdentity(projection, idField) {
			delete(record, idField)
		}
		res[i] = record
	}
	return res
}

// Modified normalizes a match-and-modify response. A nil document means no
// record satisfied the criteria and yields a not-found error naming the model
// and the search key.
func (n *Normalizer) Modified(model, locator string, doc domain.Record, idField string) (domain.Record, error) {
	if doc == nil {
		return nil, &domain.ErrNotFound{Model: model, Locator: locator}
	}
	record := make(domain.Record, len(doc))
	for k, v := range doc {
		record[k] = v
	}
	identity.ApplyLocator(record, locator, idField)
	identity.StripLocator(record, idField)
	return record, nil
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	default:
		return 0, false
	}
}
