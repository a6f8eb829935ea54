// Package domain contains domain-specific interfaces and option types for
// docshim.
//
// This package defines the contracts between the adapter core and its external
// collaborators: the store client, the connection manager, the model metadata
// registry, and the relation resolver. Implementations live under
// internal/adapter.
package domain

import "context"

// Adapter is the public operation surface of the persistence shim. Every
// operation issues exactly one underlying store request and returns exactly
// once, either with a result or with an error. Operations hold no state across
// calls; the only implicit state is the established store connection.
type Adapter interface {
	// Connect establishes the store connection through the configured
	// connection manager and caches the resulting client handle. Must be
	// called before CRUD operations; lifecycle operations instead wait for
	// the manager's one-time connected notification.
	Connect(ctx context.Context) error

	// Disconnect releases the store connection.
	Disconnect(ctx context.Context) error

	// Define prepares the storage namespace for a model. If the
	// connection is not yet established, Define waits for the connection
	// manager's connected notification and resumes exactly once.
	Define(ctx context.Context, model string, definition Record) error

	// Describe returns the property declarations registered for a model,
	// or nil when the model is unknown.
	Describe(ctx context.Context, model string) (Record, error)

	// Drop removes the storage namespace of a model. Waits for the
	// connection like Define.
	Drop(ctx context.Context, model string) error

	// Create inserts a new record, reads the assigned locator back from
	// the write acknowledgement and writes it into the model's identity
	// field. The returned record is the input record with the identity
	// field populated.
	Create(ctx context.Context, model string, record any) (Record, error)

	// Save writes a full document keyed by an existing locator. The
	// identity field must already carry the locator. On success the
	// identity value is reapplied and the store-native locator field is
	// stripped from the result.
	Save(ctx context.Context, model string, record any) (Record, error)

	// FindByLocator looks up a single record by locator. Returns
	// (nil, nil) when no record exists, not an error.
	FindByLocator(ctx context.Context, model string, locator string) (Record, error)

	// Find returns all records matching the criteria. The identity field
	// in the criteria is rewritten to the locator field before
	// translation. Results are ordered by locator ascending unless an
	// explicit sort is requested.
	Find(ctx context.Context, model string, criteria any, options ...FindOption) ([]Record, error)

	// UpdateOrCreate merges the values into the record the criteria
	// singles out, inserting a new record when none exists. The returned
	// WriteMeta reports whether a record was created.
	UpdateOrCreate(ctx context.Context, model string, criteria Record, values Record, options ...UpdateOption) (Record, WriteMeta, error)

	// UpdateAttributes partially updates exactly one record. Fails with
	// [ErrNotFound] naming the model and locator when no record exists.
	UpdateAttributes(ctx context.Context, model string, locator string, values Record) (Record, error)

	// UpdateAll updates every record matching the criteria, without
	// upsert. The identity field is stripped from the values first; it is
	// immutable through the bulk path. Returns the affected count.
	UpdateAll(ctx context.Context, model string, criteria any, values Record) (int64, error)

	// DestroyAll removes every record matching the criteria and returns
	// the removed count. A criteria matching nothing yields zero, not an
	// error.
	DestroyAll(ctx context.Context, model string, criteria any) (int64, error)

	// Count returns the number of records matching the criteria.
	Count(ctx context.Context, model string, criteria any) (int64, error)
}

// StoreClient exposes the document primitives of the underlying store. The
// native query and record shapes handed to it must match the store's expected
// request shapes exactly; the adapter owns that translation.
type StoreClient interface {
	// Insert writes a new document into a namespace and returns the
	// store's write acknowledgement. The acknowledgement shape is
	// store-specific; recognized shapes are normalized by the adapter.
	Insert(ctx context.Context, namespace string, doc Record) (any, error)
	// Get reads a single document by locator. Returns (nil, nil) when the
	// document does not exist.
	Get(ctx context.Context, namespace string, locator string) (Record, error)
	// Put writes a full document under an existing locator.
	Put(ctx context.Context, namespace string, locator string, doc Record) (any, error)
	// Query returns the documents matching a native query, applying the
	// given ordering and pagination.
	Query(ctx context.Context, namespace string, query Record, spec QuerySpec) ([]Record, error)
	// Update applies a native update document to the documents matching a
	// native query. Multi selects between first-match and all-matches.
	Update(ctx context.Context, namespace string, query Record, update Record, multi bool) (any, error)
	// Remove deletes a single document by locator.
	Remove(ctx context.Context, namespace string, locator string) (any, error)
	// RemoveByQuery deletes every document matching a native query.
	RemoveByQuery(ctx context.Context, namespace string, query Record) (any, error)
	// Count returns the number of documents matching a native query.
	Count(ctx context.Context, namespace string, query Record) (int64, error)
	// CreateNamespace prepares a namespace for use.
	CreateNamespace(ctx context.Context, namespace string) error
	// DropNamespace removes a namespace and all its documents.
	DropNamespace(ctx context.Context, namespace string) error
}

// ConnectionManager establishes and releases the store connection. Connection
// mechanics (sockets, pooling, retries) are entirely its concern; the adapter
// calls exactly these methods and nothing else.
type ConnectionManager interface {
	// Connect establishes the connection and returns the client handle.
	Connect(ctx context.Context) (StoreClient, error)
	// Disconnect releases the connection.
	Disconnect(ctx context.Context) error
	// Connected returns a channel that is closed once the connection is
	// established. The notification fires at most once.
	Connected() <-chan struct{}
	// Err returns a channel that receives at most one error when the
	// connection process fails instead of connecting.
	Err() <-chan error
	// Client returns the client handle. Only valid after the Connected
	// channel is closed.
	Client() StoreClient
}

// ModelRegistry provides per-model metadata: the identity field name, the
// property type declarations and the storage namespace override. The adapter
// reads this metadata and never writes it.
type ModelRegistry interface {
	// Meta returns the metadata for a model. Unknown models resolve to a
	// usable default rather than an error; see [ModelMeta].
	Meta(model string) ModelMeta
}

// RelationResolver expands related records for filtered reads requesting
// inclusion. The adapter delegates and passes the result through unmodified.
type RelationResolver interface {
	Include(ctx context.Context, records []Record, spec any, options Record) ([]Record, error)
}

// Decoder converts records into caller-defined data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}
