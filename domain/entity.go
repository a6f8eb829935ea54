package domain

// LocatorField is the store-native field carrying the document locator. The
// translator rewrites a model's identity field to this name, and the identity
// mapper strips it from results unless the identity field is this very name.
const LocatorField = "uri"

// Record represents a document as a mapping from field name to value, plus an
// optional locator field. Records are caller-owned and never retained by the
// adapter across calls.
type Record = map[string]any

// WriteMeta carries the metadata derived from a recognized write
// acknowledgement.
type WriteMeta struct {
	// IsNewRecord reports whether the write created a record rather than
	// updating an existing one.
	IsNewRecord bool
	// AffectedCount is the number of documents touched by the write.
	AffectedCount int64
}

// WriteAck is the acknowledgement shape produced by conforming store clients.
// The result normalizer also recognizes the loosely-typed map shape some
// clients return instead; anything else is logged and yields no metadata.
type WriteAck struct {
	// Locator is the document address assigned or addressed by the write.
	Locator string
	// Affected is the number of documents touched.
	Affected int64
	// UpdatedExisting reports whether the write modified an existing
	// document instead of creating one.
	UpdatedExisting bool
}

// SortName represents a single field and the order which should be used to
// sort it. A positive Order value means ascending order and a negative value
// means descending order.
type SortName struct {
	Key   string
	Order int64
}

// QuerySpec carries the ordering and pagination of a store query.
type QuerySpec struct {
	// Sort lists the sort rules, applied in sequence.
	Sort []SortName
	// Limit caps the number of returned documents; zero means no cap.
	Limit int64
	// Skip is the number of matching documents to pass over.
	Skip int64
}

// ModelMeta is the per-model metadata read from the registry.
type ModelMeta struct {
	// IdentityField is the model-declared primary-key field name.
	IdentityField string
	// Namespace is the storage namespace. Defaults to the model name.
	Namespace string
	// Properties maps property names to their type declarations.
	Properties Record
}

// DefaultIdentityField is used when a model declares no identity field.
const DefaultIdentityField = "id"
