// Package docshim provides a persistence adapter for document stores that
// address records by URI-like locators.
//
// The adapter translates abstract filter expressions into the store's native
// query dialect, sanitizes update payloads, and maps between each model's
// identity field and the store's locator field. Store access goes through a
// [ConnectionManager]; a bundled in-memory store is used when none is given.
//
// The basic usage starts with creating an [Adapter] by calling [New].
package docshim

import (
	"slices"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/peixotoh/docshim/domain"
	"github.com/peixotoh/docshim/internal/adapter/connector"
	"github.com/peixotoh/docshim/internal/adapter/decoder"
	"github.com/peixotoh/docshim/internal/adapter/memstore"
)

// Record represents a document as a mapping from field name to value.
type Record = domain.Record

// Adapter is the operation surface of the persistence shim. See
// [domain.Adapter] for the per-operation contracts.
type Adapter = domain.Adapter

// StoreClient exposes the document primitives of the underlying store.
type StoreClient = domain.StoreClient

// ConnectionManager establishes and releases the store connection.
type ConnectionManager = domain.ConnectionManager

// ModelRegistry provides per-model metadata.
type ModelRegistry = domain.ModelRegistry

// RelationResolver expands related records for reads requesting inclusion.
type RelationResolver = domain.RelationResolver

// ModelMeta is the per-model metadata read from the registry.
type ModelMeta = domain.ModelMeta

// WriteMeta carries the metadata derived from a write acknowledgement.
type WriteMeta = domain.WriteMeta

// WriteAck is the acknowledgement shape produced by conforming store clients.
type WriteAck = domain.WriteAck

// ErrNotFound is returned by targeted operations when no record satisfies the
// criteria.
type ErrNotFound = domain.ErrNotFound

// ErrConnectionNotEstablished is returned when a CRUD operation runs before
// [Adapter.Connect] completes.
type ErrConnectionNotEstablished = domain.ErrConnectionNotEstablished

// ErrMissingLocator is returned by [Adapter.Save] when the record carries no
// locator in its identity field.
type ErrMissingLocator = domain.ErrMissingLocator

// ErrBadSortEntry is returned when a sort entry cannot be parsed.
type ErrBadSortEntry = domain.ErrBadSortEntry

// Option configures the adapter.
type Option = domain.AdapterOption

// FindOption configures filtered reads.
type FindOption = domain.FindOption

// UpdateOption configures update-or-create behavior.
type UpdateOption = domain.UpdateOption

var (
	// WithConnectionManager sets the connection manager.
	WithConnectionManager = domain.WithConnectionManager
	// WithModelRegistry sets the model metadata registry.
	WithModelRegistry = domain.WithModelRegistry
	// WithRelationResolver sets the relation resolver.
	WithRelationResolver = domain.WithRelationResolver
	// WithLogger sets the logger.
	WithLogger = domain.WithLogger
	// WithExtendedOperators allows native mutation operators in update
	// payloads.
	WithExtendedOperators = domain.WithExtendedOperators

	// WithSort specifies the sort order for results.
	WithSort = domain.WithSort
	// WithLimit caps the number of returned records.
	WithLimit = domain.WithLimit
	// WithSkip sets the number of records to pass over.
	WithSkip = domain.WithSkip
	// WithOffset is the legacy alias for WithSkip. Skip wins when both
	// are set.
	WithOffset = domain.WithOffset
	// WithProjection limits which fields appear in results.
	WithProjection = domain.WithProjection
	// WithInclude requests relation expansion through the resolver.
	WithInclude = domain.WithInclude

	// WithUpsert toggles insertion when an update-or-create lookup misses.
	WithUpsert = domain.WithUpsert
)

// New creates a new [Adapter] with the provided configuration options:
//
// - [WithConnectionManager]: sets the store connection manager. Defaults to
// the bundled in-memory store.
//
// - [WithModelRegistry]: sets the model metadata registry. Defaults to an
// empty [Models] registry, which [Adapter.Define] populates.
//
// - [WithRelationResolver]: sets the resolver for [WithInclude] reads.
//
// - [WithLogger]: sets the logger for adapter diagnostics.
//
// - [WithExtendedOperators]: lets recognized native mutation operators pass
// through update payloads instead of being treated as data.
//
// Call [Adapter.Connect] before issuing CRUD operations.
func New(options ...Option) Adapter {
	var opts domain.AdapterOptions
	for _, opt := range options {
		opt(&opts)
	}
	if opts.Manager == nil {
		opts.Manager = memstore.NewManager(nil)
	}
	if opts.Registry == nil {
		opts.Registry = NewModels()
	}
	return connector.New(opts)
}

// NewMemoryManager returns a connection manager over a fresh in-memory store.
// Useful for tests and for sharing one store between adapters.
func NewMemoryManager() ConnectionManager {
	return memstore.NewManager(nil)
}

var _ ModelRegistry = (*Models)(nil)

// Models is a [ModelRegistry] backed by an in-process map. Safe for
// concurrent use. It also accepts the property definitions handed to
// [Adapter.Define], deriving the identity field from a property declaring an
// "id" marker.
type Models struct {
	meta *xsync.MapOf[string, ModelMeta]
}

// NewModels returns an empty Models registry.
func NewModels() *Models {
	return &Models{meta: xsync.NewMapOf[string, ModelMeta]()}
}

// Register sets the metadata for a model, replacing any previous entry.
func (m *Models) Register(model string, meta ModelMeta) {
	m.meta.Store(model, meta)
}

// Meta implements [ModelRegistry]. Unknown models yield a zero value; the
// adapter fills in the defaults.
func (m *Models) Meta(model string) ModelMeta {
	meta, _ := m.meta.Load(model)
	return meta
}

// Define stores the property declarations for a model, keeping a previously
// registered namespace and identity field. A property declared with a truthy
// "id" marker becomes the identity field; with several, the first in name
// order wins.
func (m *Models) Define(model string, definition Record) {
	meta, _ := m.meta.Load(model)
	meta.Properties = definition
	if id := identityFrom(definition); id != "" && meta.IdentityField == "" {
		meta.IdentityField = id
	}
	m.meta.Store(model, meta)
}

func identityFrom(definition Record) string {
	names := make([]string, 0, len(definition))
	for name := range definition {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		decl, ok := definition[name].(Record)
		if !ok {
			continue
		}
		if marker, ok := decl["id"].(bool); ok && marker {
			return name
		}
	}
	return ""
}

// Decode converts a record into a caller-defined representation. Struct
// targets are filled by field name or "docshim" tag.
func Decode(src, tgt any) error {
	return decoder.NewDecoder().Decode(src, tgt)
}
