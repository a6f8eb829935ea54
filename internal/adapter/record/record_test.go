package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/peixotoh/docshim/domain"
)

type M = domain.Record

type RecordTestSuite struct {
	suite.Suite
}

func (s *RecordTestSuite) TestNil() {
	rec, err := New(nil)
	s.NoError(err)
	s.Equal(M{}, rec)
}

// Maps are shallow-copied so the adapter can attach the locator without
// touching the caller's map.
func (s *RecordTestSuite) TestMapIsCopied() {
	in := M{"name": "a"}
	rec, err := New(in)
	s.NoError(err)
	rec["id"] = "Widget/ab12.json"
	s.Equal(M{"name": "a"}, in)
}

func (s *RecordTestSuite) TestStruct() {
	type widget struct {
		Name      string    `docshim:"name"`
		Size      int       `docshim:"size,omitzero"`
		Owner     *string   `docshim:"owner,omitempty"`
		CreatedAt time.Time `docshim:"createdAt"`
		hidden    string
		Skipped   string `docshim:"-"`
	}
	_ = widget{hidden: ""}

	now := time.Now()
	rec, err := New(widget{Name: "a", CreatedAt: now, Skipped: "x"})
	s.NoError(err)
	s.Equal(M{"name": "a", "createdAt": now}, rec)
}

func (s *RecordTestSuite) TestNestedStruct() {
	type dims struct {
		W int `docshim:"w"`
		H int `docshim:"h"`
	}
	type widget struct {
		Name string `docshim:"name"`
		Dims dims   `docshim:"dims"`
		Tags []any  `docshim:"tags"`
	}
	rec, err := New(&widget{Name: "a", Dims: dims{W: 2, H: 3}, Tags: []any{"x"}})
	s.NoError(err)
	s.Equal(M{
		"name": "a",
		"dims": M{"w": 2, "h": 3},
		"tags": []any{"x"},
	}, rec)
}

func (s *RecordTestSuite) TestRejectsNonStructured() {
	_, err := New(42)
	s.Error(err)
	_, err = New("nope")
	s.Error(err)
}

func TestRecordTestSuite(t *testing.T) {
	suite.Run(t, new(RecordTestSuite))
}
