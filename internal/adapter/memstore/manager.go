package memstore

import (
	"context"
	"sync"

	"github.com/peixotoh/docshim/domain"
)

var _ domain.ConnectionManager = (*Manager)(nil)

// Manager implements [domain.ConnectionManager] over a Store. Connecting is
// immediate, but the one-time connected/error notification contract is the
// real one, so lifecycle deferral can be exercised without a network.
type Manager struct {
	store     *Store
	connected chan struct{}
	errc      chan error

	mu       sync.Mutex
	notified bool
	failed   bool
}

// NewManager returns a Manager serving the given store. A nil store gets a
// fresh empty one.
func NewManager(store *Store) *Manager {
	if store == nil {
		store = New()
	}
	return &Manager{
		store:     store,
		connected: make(chan struct{}),
		errc:      make(chan error, 1),
	}
}

// Connect implements [domain.ConnectionManager].
func (m *Manager) Connect(ctx context.Context) (domain.StoreClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if !m.notified && !m.failed {
		m.notified = true
		close(m.connected)
	}
	m.mu.Unlock()
	return m.store, nil
}

// Disconnect implements [domain.ConnectionManager].
func (m *Manager) Disconnect(context.Context) error {
	return nil
}

// Connected implements [domain.ConnectionManager].
func (m *Manager) Connected() <-chan struct{} {
	return m.connected
}

// Err implements [domain.ConnectionManager].
func (m *Manager) Err() <-chan error {
	return m.errc
}

// Client implements [domain.ConnectionManager].
func (m *Manager) Client() domain.StoreClient {
	return m.store
}

// Fail makes the manager emit the one-time error notification instead of
// ever connecting. Used to exercise the waiting-operation error path.
func (m *Manager) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed {
		return
	}
	m.failed = true
	m.errc <- err
}
