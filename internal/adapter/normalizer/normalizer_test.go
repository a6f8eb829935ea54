package normalizer

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peixotoh/docshim/domain"
)

type M = domain.Record

type NormalizerTestSuite struct {
	suite.Suite
	norm *Normalizer
	logs *observer.ObservedLogs
}

func (s *NormalizerTestSuite) SetupTest() {
	core, logs := observer.New(zap.WarnLevel)
	s.norm = New(zap.New(core))
	s.logs = logs
}

func (s *NormalizerTestSuite) TestWriteMetaFromAck() {
	meta, ok := s.norm.WriteMeta(domain.WriteAck{Affected: 1})
	s.True(ok)
	s.Equal(domain.WriteMeta{IsNewRecord: true, AffectedCount: 1}, meta)

	meta, ok = s.norm.WriteMeta(&domain.WriteAck{Affected: 3, UpdatedExisting: true})
	s.True(ok)
	s.Equal(domain.WriteMeta{IsNewRecord: false, AffectedCount: 3}, meta)
	s.Zero(s.logs.Len())
}

// Loosely-typed map acknowledgements are a recognized shape too.
func (s *NormalizerTestSuite) TestWriteMetaFromMap() {
	meta, ok := s.norm.WriteMeta(map[string]any{"n": 2.0, "updatedExisting": true})
	s.True(ok)
	s.Equal(domain.WriteMeta{IsNewRecord: false, AffectedCount: 2}, meta)
}

// Unrecognized shapes are logged and yield no metadata, never an error.
func (s *NormalizerTestSuite) TestWriteMetaUnrecognized() {
	meta, ok := s.norm.WriteMeta("weird")
	s.False(ok)
	s.Zero(meta)
	s.Equal(1, s.logs.Len())

	_, ok = s.norm.WriteMeta(map[string]any{"rows": 2})
	s.False(ok)
	s.Equal(2, s.logs.Len())
}

func (s *NormalizerTestSuite) TestLocator() {
	s.Equal("Widget/ab12.json", s.norm.Locator(domain.WriteAck{Locator: "Widget/ab12.json"}))
	s.Equal("Widget/ab12.json", s.norm.Locator(map[string]any{"uri": "Widget/ab12.json"}))
	s.Equal("", s.norm.Locator(42))
}

// Enumerated documents get their locator mapped into the identity field and
// the internal locator field stripped.
func (s *NormalizerTestSuite) TestRecords() {
	records := s.norm.Records([]M{
		{"uri": "Widget/ab12.json", "name": "a"},
		{"uri": "Widget/cd34.json", "name": "b"},
	}, nil, "id")
	s.Equal([]M{
		{"id": "Widget/ab12.json", "name": "a"},
		{"id": "Widget/cd34.json", "name": "b"},
	}, records)
}

func (s *NormalizerTestSuite) TestRecordsDoNotShareStorage() {
	doc := M{"uri": "Widget/ab12.json", "name": "a"}
	records := s.norm.Records([]M{doc}, nil, "id")
	records[0]["name"] = "changed"
	s.Equal("a", doc["name"])
}

func (s *NormalizerTestSuite) TestRecordsProjection() {
	docs := []M{{"uri": "Widget/ab12.json", "name": "a", "secret": "x"}}

	records := s.norm.Records(docs, []string{"name"}, "id")
	s.Equal([]M{{"name": "a"}}, records)

	records = s.norm.Records(docs, M{"secret": false}, "id")
	s.Equal([]M{{"id": "Widget/ab12.json", "name": "a"}}, records)

	records = s.norm.Records(docs, M{"id": false, "secret": false}, "id")
	s.Equal([]M{{"name": "a"}}, records)
}

// A match-and-modify miss is an explicit not-found error naming model and
// search key.
func (s *NormalizerTestSuite) TestModifiedMiss() {
	_, err := s.norm.Modified("Widget", "Widget/ab12.json", nil, "id")
	var notFound *domain.ErrNotFound
	s.ErrorAs(err, &notFound)
	s.Equal("Widget", notFound.Model)
	s.Equal("Widget/ab12.json", notFound.Locator)
}

func (s *NormalizerTestSuite) TestModified() {
	record, err := s.norm.Modified("Widget", "Widget/ab12.json",
		M{"uri": "Widget/ab12.json", "name": "b"}, "id")
	s.NoError(err)
	s.Equal(M{"id": "Widget/ab12.json", "name": "b"}, record)
}

func TestNormalizerTestSuite(t *testing.T) {
	suite.Run(t, new(NormalizerTestSuite))
}
