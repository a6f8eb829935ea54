package connector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/peixotoh/docshim/domain"
	"github.com/peixotoh/docshim/internal/adapter/memstore"
)

type M = domain.Record

type A = []any

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Include(ctx context.Context, records []domain.Record, spec any, options domain.Record) ([]domain.Record, error) {
	args := m.Called(ctx, records, spec, options)
	res, _ := args.Get(0).([]domain.Record)
	return res, args.Error(1)
}

type registryStub struct {
	meta map[string]domain.ModelMeta
}

func (r *registryStub) Meta(model string) domain.ModelMeta {
	return r.meta[model]
}

type ConnectorTestSuite struct {
	suite.Suite
	ctx     context.Context
	manager *memstore.Manager
	conn    *Connector
}

func (s *ConnectorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.manager = memstore.NewManager(nil)
	s.conn = New(domain.AdapterOptions{Manager: s.manager})
	s.Require().NoError(s.conn.Connect(s.ctx))
}

func (s *ConnectorTestSuite) create(model string, rec M) M {
	out, err := s.conn.Create(s.ctx, model, rec)
	s.Require().NoError(err)
	return out
}

func (s *ConnectorTestSuite) TestCreateAssignsIdentity() {
	rec := s.create("Widget", M{"name": "a"})

	id, ok := rec["id"].(string)
	s.True(ok)
	s.True(strings.HasPrefix(id, "Widget/"))
	s.True(strings.HasSuffix(id, ".json"))
	s.NotContains(rec, "uri")
	s.Equal("a", rec["name"])
}

func (s *ConnectorTestSuite) TestCreateFromStruct() {
	type widget struct {
		Name string `docshim:"name"`
		Size int    `docshim:"size"`
	}
	rec, err := s.conn.Create(s.ctx, "Widget", widget{Name: "a", Size: 2})
	s.NoError(err)
	s.Equal("a", rec["name"])
	s.Contains(rec, "id")
}

func (s *ConnectorTestSuite) TestSaveReplaces() {
	rec := s.create("Widget", M{"name": "a", "size": 1})

	rec["name"] = "b"
	delete(rec, "size")
	out, err := s.conn.Save(s.ctx, "Widget", rec)
	s.NoError(err)
	s.Equal(rec["id"], out["id"])
	s.NotContains(out, "uri")

	got, err := s.conn.FindByLocator(s.ctx, "Widget", rec["id"].(string))
	s.NoError(err)
	s.Equal("b", got["name"])
	s.NotContains(got, "size")
}

func (s *ConnectorTestSuite) TestSaveWithoutLocator() {
	_, err := s.conn.Save(s.ctx, "Widget", M{"name": "a"})
	var missing *domain.ErrMissingLocator
	s.ErrorAs(err, &missing)
	s.Equal("Widget", missing.Model)
}

func (s *ConnectorTestSuite) TestFindByLocatorAbsent() {
	got, err := s.conn.FindByLocator(s.ctx, "Widget", "Widget/none.json")
	s.NoError(err)
	s.Nil(got)
}

func (s *ConnectorTestSuite) TestFindTranslatesFilter() {
	s.create("Widget", M{"name": "a", "size": 2})
	s.create("Widget", M{"name": "b", "size": 5})
	s.create("Widget", M{"name": "c", "size": 9})

	recs, err := s.conn.Find(s.ctx, "Widget",
		M{"size": M{"between": A{2, 5}}})
	s.NoError(err)
	s.Len(recs, 2)
	for _, rec := range recs {
		s.Contains(rec, "id")
		s.NotContains(rec, "uri")
	}

	recs, err = s.conn.Find(s.ctx, "Widget",
		M{"name": M{"inq": A{"a", "c"}}})
	s.NoError(err)
	s.Len(recs, 2)

	recs, err = s.conn.Find(s.ctx, "Widget",
		M{"name": M{"like": "^A", "options": "i"}})
	s.NoError(err)
	s.Len(recs, 1)
}

func (s *ConnectorTestSuite) TestFindByIdentity() {
	rec := s.create("Widget", M{"name": "a"})

	recs, err := s.conn.Find(s.ctx, "Widget", M{"id": rec["id"]})
	s.NoError(err)
	s.Len(recs, 1)
	s.Equal(rec["id"], recs[0]["id"])
}

func (s *ConnectorTestSuite) TestFindNullCriteria() {
	s.create("Widget", M{"name": "a", "owner": nil})
	s.create("Widget", M{"name": "b", "owner": "x"})
	s.create("Widget", M{"name": "c"})

	recs, err := s.conn.Find(s.ctx, "Widget", M{"owner": nil})
	s.NoError(err)
	s.Len(recs, 1)
	s.Equal("a", recs[0]["name"])
}

// A criteria that is not a structured mapping matches everything instead of
// failing the read.
func (s *ConnectorTestSuite) TestFindMalformedCriteria() {
	s.create("Widget", M{"name": "a"})
	s.create("Widget", M{"name": "b"})

	recs, err := s.conn.Find(s.ctx, "Widget", "bogus")
	s.NoError(err)
	s.Len(recs, 2)
}

func (s *ConnectorTestSuite) TestFindDefaultOrderIsLocator() {
	s.create("Widget", M{"name": "c"})
	s.create("Widget", M{"name": "a"})
	s.create("Widget", M{"name": "b"})

	recs, err := s.conn.Find(s.ctx, "Widget", nil)
	s.NoError(err)
	s.Len(recs, 3)
	for i := 1; i < len(recs); i++ {
		s.Less(recs[i-1]["id"].(string), recs[i]["id"].(string))
	}
}

func (s *ConnectorTestSuite) TestFindSortLimit() {
	s.create("Widget", M{"name": "b", "size": 2})
	s.create("Widget", M{"name": "a", "size": 3})
	s.create("Widget", M{"name": "c", "size": 1})

	recs, err := s.conn.Find(s.ctx, "Widget", nil,
		domain.WithSort("size DESC"), domain.WithLimit(2))
	s.NoError(err)
	s.Len(recs, 2)
	s.Equal("a", recs[0]["name"])
	s.Equal("b", recs[1]["name"])
}

func (s *ConnectorTestSuite) TestFindBadSortEntry() {
	_, err := s.conn.Find(s.ctx, "Widget", nil, domain.WithSort("size SIDEWAYS"))
	var bad *domain.ErrBadSortEntry
	s.ErrorAs(err, &bad)
}

// Skip wins over the legacy offset alias when both are set.
func (s *ConnectorTestSuite) TestFindSkipBeatsOffset() {
	for _, name := range []string{"a", "b", "c", "d"} {
		s.create("Widget", M{"name": name})
	}

	recs, err := s.conn.Find(s.ctx, "Widget", nil,
		domain.WithSort("name ASC"), domain.WithSkip(3), domain.WithOffset(1))
	s.NoError(err)
	s.Len(recs, 1)
	s.Equal("d", recs[0]["name"])

	recs, err = s.conn.Find(s.ctx, "Widget", nil,
		domain.WithSort("name ASC"), domain.WithOffset(2))
	s.NoError(err)
	s.Len(recs, 2)
}

func (s *ConnectorTestSuite) TestFindProjection() {
	s.create("Widget", M{"name": "a", "size": 1})

	recs, err := s.conn.Find(s.ctx, "Widget", nil,
		domain.WithProjection([]string{"name"}))
	s.NoError(err)
	s.Len(recs, 1)
	s.Equal(M{"name": "a"}, recs[0])

	recs, err = s.conn.Find(s.ctx, "Widget", nil,
		domain.WithProjection(M{"size": 0}))
	s.NoError(err)
	s.Contains(recs[0], "name")
	s.Contains(recs[0], "id")
	s.NotContains(recs[0], "size")
}

func (s *ConnectorTestSuite) TestFindInclude() {
	s.create("Widget", M{"name": "a"})

	resolver := new(mockResolver)
	expanded := []domain.Record{{"name": "a", "parts": A{}}}
	resolver.On("Include", mock.Anything, mock.Anything, "parts", mock.Anything).
		Return(expanded, nil)

	conn := New(domain.AdapterOptions{Manager: s.manager, Resolver: resolver})
	s.Require().NoError(conn.Connect(s.ctx))

	recs, err := conn.Find(s.ctx, "Widget", nil, domain.WithInclude("parts"))
	s.NoError(err)
	s.Equal(expanded, recs)
	resolver.AssertExpectations(s.T())
}

func (s *ConnectorTestSuite) TestUpdateOrCreateExisting() {
	rec := s.create("Widget", M{"name": "a", "size": 1})

	out, meta, err := s.conn.UpdateOrCreate(s.ctx, "Widget",
		M{"id": rec["id"]}, M{"size": 2})
	s.NoError(err)
	s.False(meta.IsNewRecord)
	s.Equal(int64(1), meta.AffectedCount)
	s.Equal(2, out["size"])
	// the wrap under the set-fields operator preserves untouched fields
	s.Equal("a", out["name"])
	s.Equal(rec["id"], out["id"])
}

func (s *ConnectorTestSuite) TestUpdateOrCreateMissUpserts() {
	out, meta, err := s.conn.UpdateOrCreate(s.ctx, "Widget",
		M{"name": "a"}, M{"size": 2})
	s.NoError(err)
	s.True(meta.IsNewRecord)
	s.Equal("a", out["name"])
	s.Equal(2, out["size"])
	s.Contains(out, "id")

	count, err := s.conn.Count(s.ctx, "Widget", nil)
	s.NoError(err)
	s.Equal(int64(1), count)
}

func (s *ConnectorTestSuite) TestUpdateOrCreateMissWithoutUpsert() {
	_, _, err := s.conn.UpdateOrCreate(s.ctx, "Widget",
		M{"id": "Widget/none.json"}, M{"size": 2}, domain.WithUpsert(false))
	var notFound *domain.ErrNotFound
	s.ErrorAs(err, &notFound)
	s.Equal("Widget", notFound.Model)
}

func (s *ConnectorTestSuite) TestUpdateAttributes() {
	rec := s.create("Widget", M{"name": "a", "size": 1})

	out, err := s.conn.UpdateAttributes(s.ctx, "Widget",
		rec["id"].(string), M{"size": 3})
	s.NoError(err)
	s.Equal(3, out["size"])
	s.Equal("a", out["name"])
	s.NotContains(out, "uri")
}

func (s *ConnectorTestSuite) TestUpdateAttributesNotFound() {
	_, err := s.conn.UpdateAttributes(s.ctx, "Widget",
		"Widget/none.json", M{"size": 3})
	var notFound *domain.ErrNotFound
	s.ErrorAs(err, &notFound)
	s.Equal("Widget/none.json", notFound.Locator)
}

// With extended operators disabled, a native operator in the payload is data,
// not an instruction.
func (s *ConnectorTestSuite) TestUpdateAttributesOperatorInjection() {
	rec := s.create("Widget", M{"name": "a", "size": 1})

	out, err := s.conn.UpdateAttributes(s.ctx, "Widget",
		rec["id"].(string), M{"$inc": M{"size": 5}})
	s.NoError(err)
	s.Equal(1, out["size"])
	s.Equal(M{"size": 5}, out["$inc"])
}

func (s *ConnectorTestSuite) TestUpdateAttributesExtendedOperators() {
	conn := New(domain.AdapterOptions{Manager: s.manager, ExtendedOperators: true})
	s.Require().NoError(conn.Connect(s.ctx))
	rec := s.create("Widget", M{"name": "a", "size": 1})

	out, err := conn.UpdateAttributes(s.ctx, "Widget",
		rec["id"].(string), M{"$inc": M{"size": 5}})
	s.NoError(err)
	s.Equal(6.0, out["size"])
}

func (s *ConnectorTestSuite) TestUpdateAll() {
	s.create("Widget", M{"name": "a", "size": 1})
	s.create("Widget", M{"name": "b", "size": 1})
	s.create("Widget", M{"name": "c", "size": 9})

	n, err := s.conn.UpdateAll(s.ctx, "Widget", M{"size": 1}, M{"size": 2})
	s.NoError(err)
	s.Equal(int64(2), n)

	count, err := s.conn.Count(s.ctx, "Widget", M{"size": 2})
	s.NoError(err)
	s.Equal(int64(2), count)
}

func (s *ConnectorTestSuite) TestUpdateAllZeroMatches() {
	n, err := s.conn.UpdateAll(s.ctx, "Widget", M{"name": "ghost"}, M{"size": 2})
	s.NoError(err)
	s.Equal(int64(0), n)
}

// The bulk path never moves records to another locator.
func (s *ConnectorTestSuite) TestUpdateAllIdentityImmutable() {
	rec := s.create("Widget", M{"name": "a"})

	n, err := s.conn.UpdateAll(s.ctx, "Widget", M{"name": "a"},
		M{"id": "Widget/hijack.json", "name": "b"})
	s.NoError(err)
	s.Equal(int64(1), n)

	got, err := s.conn.FindByLocator(s.ctx, "Widget", rec["id"].(string))
	s.NoError(err)
	s.Equal("b", got["name"])
	s.Equal(rec["id"], got["id"])
}

func (s *ConnectorTestSuite) TestDestroyAllTwice() {
	s.create("Widget", M{"name": "a"})

	n, err := s.conn.DestroyAll(s.ctx, "Widget", M{"name": "a"})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = s.conn.DestroyAll(s.ctx, "Widget", M{"name": "a"})
	s.NoError(err)
	s.Equal(int64(0), n)
}

func (s *ConnectorTestSuite) TestDestroyAllByIdentity() {
	rec := s.create("Widget", M{"name": "a"})

	n, err := s.conn.DestroyAll(s.ctx, "Widget", M{"id": rec["id"]})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = s.conn.DestroyAll(s.ctx, "Widget", M{"id": "Widget/none.json"})
	s.NoError(err)
	s.Equal(int64(0), n)
}

func (s *ConnectorTestSuite) TestCount() {
	rec := s.create("Widget", M{"name": "a", "size": 1})
	s.create("Widget", M{"name": "b", "size": 2})

	n, err := s.conn.Count(s.ctx, "Widget", nil)
	s.NoError(err)
	s.Equal(int64(2), n)

	n, err = s.conn.Count(s.ctx, "Widget", M{"size": M{"gt": 1}})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = s.conn.Count(s.ctx, "Widget", M{"id": rec["id"]})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = s.conn.Count(s.ctx, "Widget", M{"id": "Widget/none.json"})
	s.NoError(err)
	s.Equal(int64(0), n)
}

func (s *ConnectorTestSuite) TestRegistryMetadata() {
	registry := &registryStub{meta: map[string]domain.ModelMeta{
		"Widget": {
			IdentityField: "uri",
			Namespace:     "widgets",
			Properties:    M{"name": M{"type": "string"}},
		},
	}}
	conn := New(domain.AdapterOptions{Manager: s.manager, Registry: registry})
	s.Require().NoError(conn.Connect(s.ctx))

	rec, err := conn.Create(s.ctx, "Widget", M{"name": "a"})
	s.NoError(err)
	uri, ok := rec["uri"].(string)
	s.True(ok)
	s.True(strings.HasPrefix(uri, "widgets/"))
	s.NotContains(rec, "id")

	props, err := conn.Describe(s.ctx, "Widget")
	s.NoError(err)
	s.Equal(M{"name": M{"type": "string"}}, props)
}

func (s *ConnectorTestSuite) TestCRUDBeforeConnect() {
	conn := New(domain.AdapterOptions{Manager: memstore.NewManager(nil)})

	_, err := conn.Create(s.ctx, "Widget", M{"name": "a"})
	var notEstablished *domain.ErrConnectionNotEstablished
	s.ErrorAs(err, &notEstablished)
	s.Equal("Create", notEstablished.Op)

	_, err = conn.Find(s.ctx, "Widget", nil)
	s.ErrorAs(err, &notEstablished)
	s.Equal("Find", notEstablished.Op)
}

// Lifecycle operations wait for the connection instead of failing.
func (s *ConnectorTestSuite) TestDefineDefersUntilConnected() {
	manager := memstore.NewManager(nil)
	conn := New(domain.AdapterOptions{Manager: manager})

	done := make(chan error, 1)
	go func() {
		done <- conn.Define(s.ctx, "Widget", M{"name": M{"type": "string"}})
	}()

	select {
	case err := <-done:
		s.Failf("define resolved before connect", "err: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	s.Require().NoError(conn.Connect(s.ctx))
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("define never resumed")
	}
}

// The connection error is one-time on the manager side; the connector must
// hand it to every waiting operation, not only the one that drained it.
func (s *ConnectorTestSuite) TestConnectionErrorReachesAllWaiters() {
	manager := memstore.NewManager(nil)
	conn := New(domain.AdapterOptions{Manager: manager})

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			errs <- conn.Define(s.ctx, "Widget", nil)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	manager.Fail(context.DeadlineExceeded)

	for range 2 {
		select {
		case err := <-errs:
			s.ErrorIs(err, context.DeadlineExceeded)
		case <-time.After(time.Second):
			s.Fail("waiter never resumed")
		}
	}

	// late arrivals see the latched error without blocking
	_, err := conn.Describe(s.ctx, "Widget")
	s.ErrorIs(err, context.DeadlineExceeded)
	s.ErrorIs(conn.Drop(s.ctx, "Widget"), context.DeadlineExceeded)
}

func (s *ConnectorTestSuite) TestDefineFailsOnConnectionError() {
	manager := memstore.NewManager(nil)
	manager.Fail(context.DeadlineExceeded)
	conn := New(domain.AdapterOptions{Manager: manager})

	err := conn.Define(s.ctx, "Widget", nil)
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *ConnectorTestSuite) TestDropRemovesNamespace() {
	s.create("Widget", M{"name": "a"})

	s.NoError(s.conn.Drop(s.ctx, "Widget"))
	n, err := s.conn.Count(s.ctx, "Widget", nil)
	s.NoError(err)
	s.Equal(int64(0), n)
}

func TestConnectorTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectorTestSuite))
}
