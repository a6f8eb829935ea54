// Package connector implements the adapter operation surface by composing
// the translator, sanitizer, identity mapper and normalizer around a store
// client obtained from the connection manager.
package connector

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/peixotoh/docshim/domain"
	"github.com/peixotoh/docshim/internal/adapter/identity"
	"github.com/peixotoh/docshim/internal/adapter/normalizer"
	"github.com/peixotoh/docshim/internal/adapter/record"
	"github.com/peixotoh/docshim/internal/adapter/sanitizer"
	"github.com/peixotoh/docshim/internal/adapter/sortorder"
	"github.com/peixotoh/docshim/internal/adapter/translator"
)

// definer is the optional write side of a model registry. Registries that
// accept definitions receive the property declarations handed to Define.
type definer interface {
	Define(model string, definition domain.Record)
}

var _ domain.Adapter = (*Connector)(nil)

// Connector implements [domain.Adapter]. Zero value is not usable; construct
// through [New].
type Connector struct {
	manager  domain.ConnectionManager
	registry domain.ModelRegistry
	resolver domain.RelationResolver
	logger   *zap.Logger
	extended bool

	translator *translator.Translator
	normalizer *normalizer.Normalizer

	mu     sync.RWMutex
	client domain.StoreClient
	// connErr latches the manager's one-time connection error; failed is
	// closed along with it so every waiter sees the error, not just the
	// one that drained the channel.
	connErr error
	failed  chan struct{}
}

// New returns a Connector wired to the collaborators in opts. A nil logger
// defaults to a no-op logger.
func New(opts domain.AdapterOptions) *Connector {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		manager:    opts.Manager,
		registry:   opts.Registry,
		resolver:   opts.Resolver,
		logger:     logger,
		extended:   opts.ExtendedOperators,
		translator: translator.New(logger),
		normalizer: normalizer.New(logger),
		failed:     make(chan struct{}),
	}
}

// Connect implements [domain.Adapter].
func (c *Connector) Connect(ctx context.Context) error {
	client, err := c.manager.Connect(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.logger.Debug("store connection established")
	return nil
}

// Disconnect implements [domain.Adapter].
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.client = nil
	c.mu.Unlock()
	return c.manager.Disconnect(ctx)
}

// store returns the cached client handle, failing when Connect has not
// completed yet. CRUD operations use this; lifecycle operations defer through
// awaitStore instead.
func (c *Connector) store(op string) (domain.StoreClient, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return nil, &domain.ErrConnectionNotEstablished{Op: op}
	}
	return client, nil
}

// awaitStore blocks until the manager reports a connection, a connection
// failure or the context ends. The connected notification resolves at most
// once per manager; operations arriving after it see a closed channel and
// resume immediately. The error notification is likewise one-time, so the
// first waiter to receive it latches it for everyone else.
func (c *Connector) awaitStore(ctx context.Context) (domain.StoreClient, error) {
	c.mu.RLock()
	client, connErr := c.client, c.connErr
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}
	if connErr != nil {
		return nil, connErr
	}
	select {
	case <-c.manager.Connected():
		return c.manager.Client(), nil
	case err := <-c.manager.Err():
		return nil, c.latchConnErr(err)
	case <-c.failed:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return nil, c.connErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Connector) latchConnErr(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connErr == nil {
		c.connErr = err
		close(c.failed)
	}
	return c.connErr
}

func (c *Connector) meta(model string) domain.ModelMeta {
	var m domain.ModelMeta
	if c.registry != nil {
		m = c.registry.Meta(model)
	}
	if m.IdentityField == "" {
		m.IdentityField = domain.DefaultIdentityField
	}
	if m.Namespace == "" {
		m.Namespace = model
	}
	return m
}

// Define implements [domain.Adapter].
func (c *Connector) Define(ctx context.Context, model string, definition domain.Record) error {
	client, err := c.awaitStore(ctx)
	if err != nil {
		return err
	}
	if d, ok := c.registry.(definer); ok {
		d.Define(model, definition)
	}
	return client.CreateNamespace(ctx, c.meta(model).Namespace)
}

// Describe implements [domain.Adapter].
func (c *Connector) Describe(ctx context.Context, model string) (domain.Record, error) {
	if _, err := c.awaitStore(ctx); err != nil {
		return nil, err
	}
	return c.meta(model).Properties, nil
}

// Drop implements [domain.Adapter].
func (c *Connector) Drop(ctx context.Context, model string) error {
	client, err := c.awaitStore(ctx)
	if err != nil {
		return err
	}
	return client.DropNamespace(ctx, c.meta(model).Namespace)
}

// Create implements [domain.Adapter].
func (c *Connector) Create(ctx context.Context, model string, rec any) (domain.Record, error) {
	client, err := c.store("Create")
	if err != nil {
		return nil, err
	}
	m := c.meta(model)
	doc, err := record.New(rec)
	if err != nil {
		return nil, err
	}
	delete(doc, m.IdentityField)
	delete(doc, domain.LocatorField)

	ack, err := client.Insert(ctx, m.Namespace, doc)
	if err != nil {
		return nil, err
	}
	locator := c.normalizer.Locator(ack)
	identity.ApplyLocator(doc, locator, m.IdentityField)
	identity.StripLocator(doc, m.IdentityField)
	return doc, nil
}

// Save implements [domain.Adapter].
func (c *Connector) Save(ctx context.Context, model string, rec any) (domain.Record, error) {
	client, err := c.store("Save")
	if err != nil {
		return nil, err
	}
	m := c.meta(model)
	doc, err := record.New(rec)
	if err != nil {
		return nil, err
	}
	locator, ok := identity.ToLocator(m.IdentityField, doc)
	if !ok {
		return nil, &domain.ErrMissingLocator{Model: model}
	}
	delete(doc, m.IdentityField)
	delete(doc, domain.LocatorField)

	if _, err := client.Put(ctx, m.Namespace, locator, doc); err != nil {
		return nil, err
	}
	identity.ApplyLocator(doc, locator, m.IdentityField)
	identity.StripLocator(doc, m.IdentityField)
	return doc, nil
}

// FindByLocator implements [domain.Adapter].
func (c *Connector) FindByLocator(ctx context.Context, model string, locator string) (domain.Record, error) {
	client, err := c.store("FindByLocator")
	if err != nil {
		return nil, err
	}
	m := c.meta(model)
	doc, err := client.Get(ctx, m.Namespace, locator)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return c.normalizer.Records([]domain.Record{doc}, nil, m.IdentityField)[0], nil
}

// Find implements [domain.Adapter].
func (c *Connector) Find(ctx context.Context, model string, criteria any, options ...domain.FindOption) ([]domain.Record, error) {
	client, err := c.store("Find")
	if err != nil {
		return nil, err
	}
	var fo domain.FindOptions
	for _, opt := range options {
		opt(&fo)
	}
	m := c.meta(model)

	spec := domain.QuerySpec{Limit: fo.Limit, Skip: fo.Skip}
	if spec.Skip == 0 {
		spec.Skip = fo.Offset
	}
	if len(fo.Sort) > 0 {
		if spec.Sort, err = sortorder.Parse(fo.Sort); err != nil {
			return nil, err
		}
	} else {
		spec.Sort = sortorder.Default()
	}

	query := c.translator.Translate(m.IdentityField, criteria)
	docs, err := client.Query(ctx, m.Namespace, query, spec)
	if err != nil {
		return nil, err
	}
	records := c.normalizer.Records(docs, fo.Projection, m.IdentityField)
	if fo.Include != nil && c.resolver != nil {
		return c.resolver.Include(ctx, records, fo.Include,
			domain.Record{"model": model})
	}
	return records, nil
}

// UpdateOrCreate implements [domain.Adapter].
func (c *Connector) UpdateOrCreate(ctx context.Context, model string, criteria domain.Record, values domain.Record, options ...domain.UpdateOption) (domain.Record, domain.WriteMeta, error) {
	client, err := c.store("UpdateOrCreate")
	if err != nil {
		return nil, domain.WriteMeta{}, err
	}
	uo := domain.UpdateOptions{Upsert: true}
	for _, opt := range options {
		opt(&uo)
	}
	m := c.meta(model)

	locator, addressed := identity.ToLocator(m.IdentityField, criteria)
	if addressed {
		existing, err := client.Get(ctx, m.Namespace, locator)
		if err != nil {
			return nil, domain.WriteMeta{}, err
		}
		if existing != nil {
			return c.updateExisting(ctx, client, model, m, locator, values)
		}
	}
	if !uo.Upsert {
		return nil, domain.WriteMeta{}, &domain.ErrNotFound{Model: model, Locator: locator}
	}
	return c.insertFrom(ctx, client, m, criteria, values)
}

// updateExisting applies sanitized values to the record at locator and reads
// the updated document back.
func (c *Connector) updateExisting(ctx context.Context, client domain.StoreClient, model string, m domain.ModelMeta, locator string, values domain.Record) (domain.Record, domain.WriteMeta, error) {
	update := sanitizer.Sanitize(withoutIdentity(values, m.IdentityField), c.extended)
	ack, err := client.Update(ctx, m.Namespace,
		domain.Record{domain.LocatorField: locator}, update, false)
	if err != nil {
		return nil, domain.WriteMeta{}, err
	}
	wm, _ := c.normalizer.WriteMeta(ack)
	wm.IsNewRecord = false

	doc, err := client.Get(ctx, m.Namespace, locator)
	if err != nil {
		return nil, domain.WriteMeta{}, err
	}
	res, err := c.normalizer.Modified(model, locator, doc, m.IdentityField)
	if err != nil {
		return nil, domain.WriteMeta{}, err
	}
	return res, wm, nil
}

// insertFrom builds a new document from the criteria's plain fields merged
// with the values, honoring set-fields operator payloads, and inserts it.
func (c *Connector) insertFrom(ctx context.Context, client domain.StoreClient, m domain.ModelMeta, criteria, values domain.Record) (domain.Record, domain.WriteMeta, error) {
	doc := make(domain.Record, len(criteria)+len(values))
	merge := func(fields domain.Record) {
		for k, v := range fields {
			if k == m.IdentityField || k == domain.LocatorField {
				continue
			}
			doc[k] = v
		}
	}
	merge(criteria)
	for k, v := range values {
		if !strings.HasPrefix(k, "$") {
			if k != m.IdentityField && k != domain.LocatorField {
				doc[k] = v
			}
			continue
		}
		if k == "$set" || k == "$setOnInsert" {
			if fields, ok := v.(domain.Record); ok {
				merge(fields)
			}
		}
	}

	ack, err := client.Insert(ctx, m.Namespace, doc)
	if err != nil {
		return nil, domain.WriteMeta{}, err
	}
	locator := c.normalizer.Locator(ack)
	identity.ApplyLocator(doc, locator, m.IdentityField)
	identity.StripLocator(doc, m.IdentityField)
	return doc, domain.WriteMeta{IsNewRecord: true, AffectedCount: 1}, nil
}

// UpdateAttributes implements [domain.Adapter].
func (c *Connector) UpdateAttributes(ctx context.Context, model string, locator string, values domain.Record) (domain.Record, error) {
	client, err := c.store("UpdateAttributes")
	if err != nil {
		return nil, err
	}
	m := c.meta(model)

	existing, err := client.Get(ctx, m.Namespace, locator)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &domain.ErrNotFound{Model: model, Locator: locator}
	}

	update := sanitizer.Sanitize(withoutIdentity(values, m.IdentityField), c.extended)
	if _, err := client.Update(ctx, m.Namespace,
		domain.Record{domain.LocatorField: locator}, update, false); err != nil {
		return nil, err
	}
	doc, err := client.Get(ctx, m.Namespace, locator)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Modified(model, locator, doc, m.IdentityField)
}

// UpdateAll implements [domain.Adapter].
func (c *Connector) UpdateAll(ctx context.Context, model string, criteria any, values domain.Record) (int64, error) {
	client, err := c.store("UpdateAll")
	if err != nil {
		return 0, err
	}
	m := c.meta(model)

	query := c.translator.Translate(m.IdentityField, criteria)
	update := sanitizer.Sanitize(withoutIdentity(values, m.IdentityField), c.extended)
	ack, err := client.Update(ctx, m.Namespace, query, update, true)
	if err != nil {
		return 0, err
	}
	wm, _ := c.normalizer.WriteMeta(ack)
	return wm.AffectedCount, nil
}

// DestroyAll implements [domain.Adapter].
func (c *Connector) DestroyAll(ctx context.Context, model string, criteria any) (int64, error) {
	client, err := c.store("DestroyAll")
	if err != nil {
		return 0, err
	}
	m := c.meta(model)

	query := c.translator.Translate(m.IdentityField, criteria)
	var ack any
	if locator, ok := soleLocator(query); ok {
		ack, err = client.Remove(ctx, m.Namespace, locator)
	} else {
		ack, err = client.RemoveByQuery(ctx, m.Namespace, query)
	}
	if err != nil {
		return 0, err
	}
	wm, _ := c.normalizer.WriteMeta(ack)
	return wm.AffectedCount, nil
}

// Count implements [domain.Adapter].
func (c *Connector) Count(ctx context.Context, model string, criteria any) (int64, error) {
	client, err := c.store("Count")
	if err != nil {
		return 0, err
	}
	m := c.meta(model)

	query := c.translator.Translate(m.IdentityField, criteria)
	if locator, ok := soleLocator(query); ok {
		doc, err := client.Get(ctx, m.Namespace, locator)
		if err != nil {
			return 0, err
		}
		if doc == nil {
			return 0, nil
		}
		return 1, nil
	}
	return client.Count(ctx, m.Namespace, query)
}

// soleLocator reports whether a native query addresses exactly one document
// by literal locator, allowing point operations instead of a store scan.
func soleLocator(query domain.Record) (string, bool) {
	if len(query) != 1 {
		return "", false
	}
	locator, ok := query[domain.LocatorField].(string)
	return locator, ok
}

func withoutIdentity(values domain.Record, idField string) domain.Record {
	res := make(domain.Record, len(values))
	for k, v := range values {
		if k == idField || k == domain.LocatorField {
			continue
		}
		res[k] = v
	}
	return res
}
