// Package memstore provides an in-memory [domain.StoreClient] and
// [domain.ConnectionManager]. It understands exactly the native query and
// update dialect the adapter emits, which makes it usable both as a bundled
// reference store and as the store double for end-to-end tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/bst/adapter/unbalanced"

	"github.com/peixotoh/docshim/domain"
)

var _ domain.StoreClient = (*Store)(nil)

// Store implements [domain.StoreClient] in memory. Safe for concurrent use.
type Store struct {
	namespaces *xsync.MapOf[string, *collection]
}

type collection struct {
	mu   sync.RWMutex
	docs map[string]domain.Record
	// order keeps locators sorted so enumeration defaults to locator
	// ascending without re-sorting on every query.
	order bst.BST[string, string]
}

// New returns an empty Store.
func New() *Store {
	return &Store{namespaces: xsync.NewMapOf[string, *collection]()}
}

func newCollection() *collection {
	return &collection{
		docs:  make(map[string]domain.Record),
		order: unbalanced.NewBST(true, 0, comparer.NewComparer[string, string]()),
	}
}

func (s *Store) collection(namespace string) *collection {
	c, _ := s.namespaces.LoadOrCompute(namespace, newCollection)
	return c
}

// Insert implements [domain.StoreClient]. The store assigns the locator:
// namespace, a separator, a short random id and a .json suffix.
func (s *Store) Insert(ctx context.Context, namespace string, doc domain.Record) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.Lock()
	defer c.mu.Unlock()

	locator := newLocator(namespace)
	stored := copyRecord(doc)
	stored[domain.LocatorField] = locator
	c.docs[locator] = stored
	if err := c.order.Insert(locator, locator); err != nil {
		return nil, err
	}
	return domain.WriteAck{Locator: locator, Affected: 1}, nil
}

// Get implements [domain.StoreClient].
func (s *Store) Get(ctx context.Context, namespace string, locator string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.RLock()
	defer c.mu.RUnlock()

	doc, ok := c.docs[locator]
	if !ok {
		return nil, nil
	}
	return copyRecord(doc), nil
}

// Put implements [domain.StoreClient]. Writes the full document under the
// locator, creating it when absent.
func (s *Store) Put(ctx context.Context, namespace string, locator string, doc domain.Record) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.docs[locator]
	stored := copyRecord(doc)
	stored[domain.LocatorField] = locator
	c.docs[locator] = stored
	if !existed {
		if err := c.order.Insert(locator, locator); err != nil {
			return nil, err
		}
	}
	return domain.WriteAck{Locator: locator, Affected: 1, UpdatedExisting: existed}, nil
}

// Query implements [domain.StoreClient].
func (s *Store) Query(ctx context.Context, namespace string, query domain.Record, spec domain.QuerySpec) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches, err := c.matching(query)
	if err != nil {
		return nil, err
	}
	sortRecords(matches, spec.Sort)

	if spec.Skip > 0 {
		if spec.Skip >= int64(len(matches)) {
			matches = nil
		} else {
			matches = matches[spec.Skip:]
		}
	}
	if spec.Limit > 0 && spec.Limit < int64(len(matches)) {
		matches = matches[:spec.Limit]
	}

	res := make([]domain.Record, len(matches))
	for n, doc := range matches {
		res[n] = copyRecord(doc)
	}
	return res, nil
}

// Update implements [domain.StoreClient]. Applies the native update document
// to every match, or only the first when multi is false. Never upserts.
func (s *Store) Update(ctx context.Context, namespace string, query domain.Record, update domain.Record, multi bool) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, err := c.matching(query)
	if err != nil {
		return nil, err
	}
	if !multi && len(matches) > 1 {
		matches = matches[:1]
	}

	ack := domain.WriteAck{UpdatedExisting: len(matches) > 0}
	for _, doc := range matches {
		locator := doc[domain.LocatorField].(string)
		modified, err := modify(doc, update)
		if err != nil {
			return nil, err
		}
		modified[domain.LocatorField] = locator
		c.docs[locator] = modified
		ack.Affected++
		if ack.Locator == "" {
			ack.Locator = locator
		}
	}
	return ack, nil
}

// Remove implements [domain.StoreClient]. Removing an absent locator is a
// zero-count success.
func (s *Store) Remove(ctx context.Context, namespace string, locator string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[locator]; !ok {
		return domain.WriteAck{Locator: locator}, nil
	}
	delete(c.docs, locator)
	if err := c.order.Delete(locator, &locator); err != nil {
		return nil, err
	}
	return domain.WriteAck{Locator: locator, Affected: 1, UpdatedExisting: true}, nil
}

// RemoveByQuery implements [domain.StoreClient].
func (s *Store) RemoveByQuery(ctx context.Context, namespace string, query domain.Record) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.collection(namespace)
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, err := c.matching(query)
	if err != nil {
		return nil, err
	}
	for _, doc := range matches {
		locator := doc[domain.LocatorField].(string)
		delete(c.docs, locator)
		if err := c.order.Delete(locator, &locator); err != nil {
			return nil, err
		}
	}
	return domain.WriteAck{Affected: int64(len(matches)), UpdatedExisting: len(matches) > 0}, nil
}

// Count implements [domain.StoreClient].
func (s *Store) Count(ctx context.Context, namespace string, query domain.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c := s.collection(namespace)
	c.mu.RLock()
	defer c.mu.RUnlock()

	matches, err := c.matching(query)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

// CreateNamespace implements [domain.StoreClient].
func (s *Store) CreateNamespace(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.collection(namespace)
	return nil
}

// DropNamespace implements [domain.StoreClient].
func (s *Store) DropNamespace(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.namespaces.Delete(namespace)
	return nil
}

// matching returns the stored documents satisfying the query, in locator
// order. Callers hold the collection lock.
func (c *collection) matching(query domain.Record) ([]domain.Record, error) {
	var res []domain.Record
	for locator := range c.order.GetAll() {
		doc := c.docs[locator]
		ok, err := match(doc, query)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, doc)
		}
	}
	return res, nil
}

func sortRecords(docs []domain.Record, rules []domain.SortName) {
	if len(rules) == 0 {
		return
	}
	if len(rules) == 1 && rules[0].Key == domain.LocatorField && rules[0].Order > 0 {
		// already in locator order
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, rule := range rules {
			c, ok := compare(docs[i][rule.Key], docs[j][rule.Key])
			if !ok {
				continue
			}
			if c == 0 {
				continue
			}
			if rule.Order < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func newLocator(namespace string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return namespace + "/" + id + ".json"
}

func copyRecord(doc domain.Record) domain.Record {
	res := make(domain.Record, len(doc))
	for k, v := range doc {
		res[k] = v
	}
	return res
}
