package domain

import "go.uber.org/zap"

// AdapterOption configures adapter behavior through the functional options
// pattern.
type AdapterOption func(*AdapterOptions)

// AdapterOptions contains the collaborators and configuration of an adapter.
type AdapterOptions struct {
	// Manager establishes and releases the store connection.
	Manager ConnectionManager
	// Registry resolves per-model metadata.
	Registry ModelRegistry
	// Resolver expands related records on filtered reads. Optional.
	Resolver RelationResolver
	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// ExtendedOperators allows store-native mutation operators in update
	// payloads. When false, every payload is wrapped under a set-fields
	// operator, guarding against operator injection.
	ExtendedOperators bool
}

// WithConnectionManager sets the connection manager for the adapter.
func WithConnectionManager(m ConnectionManager) AdapterOption {
	return func(ao *AdapterOptions) {
		ao.Manager = m
	}
}

// WithModelRegistry sets the model metadata registry for the adapter.
func WithModelRegistry(r ModelRegistry) AdapterOption {
	return func(ao *AdapterOptions) {
		ao.Registry = r
	}
}

// WithRelationResolver sets the relation resolver used for inclusion on
// filtered reads.
func WithRelationResolver(r RelationResolver) AdapterOption {
	return func(ao *AdapterOptions) {
		ao.Resolver = r
	}
}

// WithLogger sets the logger for the adapter and its components.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(ao *AdapterOptions) {
		ao.Logger = l
	}
}

// WithExtendedOperators allows recognized store-native mutation operators to
// pass through update payloads.
func WithExtendedOperators(e bool) AdapterOption {
	return func(ao *AdapterOptions) {
		ao.ExtendedOperators = e
	}
}

// FindOption configures filtered reads through the functional options pattern.
type FindOption func(*FindOptions)

// FindOptions contains parameters for customizing filtered reads.
type FindOptions struct {
	// Sort lists sort entries, each a field name with an optional ASC or
	// DESC suffix. Empty means locator ascending.
	Sort []string
	// Limit caps the number of returned records; zero means no cap.
	Limit int64
	// Skip is the number of matching records to pass over.
	Skip int64
	// Offset is a legacy alias for Skip. Skip wins when both are set.
	Offset int64
	// Projection limits which fields appear in results. Either an
	// inclusion list of field names or a map from field name to a truthy
	// (include) or falsy (exclude) marker.
	Projection any
	// Include requests relation expansion through the resolver.
	Include any
}

// WithSort specifies the sort order for results. Each entry is a field name,
// optionally suffixed with ASC or DESC (case-insensitive).
func WithSort(entries ...string) FindOption {
	return func(fo *FindOptions) {
		fo.Sort = entries
	}
}

// WithLimit sets the maximum number of records to return.
func WithLimit(l int64) FindOption {
	return func(fo *FindOptions) {
		fo.Limit = l
	}
}

// WithSkip sets the number of records to skip.
func WithSkip(s int64) FindOption {
	return func(fo *FindOptions) {
		fo.Skip = s
	}
}

// WithOffset sets the legacy offset alias. Ignored when a skip is also given.
func WithOffset(o int64) FindOption {
	return func(fo *FindOptions) {
		fo.Offset = o
	}
}

// WithProjection specifies which fields to include or exclude from results.
func WithProjection(p any) FindOption {
	return func(fo *FindOptions) {
		fo.Projection = p
	}
}

// WithInclude requests relation expansion for the results.
func WithInclude(spec any) FindOption {
	return func(fo *FindOptions) {
		fo.Include = spec
	}
}

// UpdateOption configures update-or-create behavior through the functional
// options pattern.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains parameters for customizing update-or-create.
type UpdateOptions struct {
	// Upsert enables inserting a record when the lookup misses. Enabled
	// by default.
	Upsert bool
}

// WithUpsert toggles insertion when the lookup misses. The contract defaults
// to upsert semantics; disabling it makes a missed lookup an error.
func WithUpsert(u bool) UpdateOption {
	return func(uo *UpdateOptions) {
		uo.Upsert = u
	}
}
