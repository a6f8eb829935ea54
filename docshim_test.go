package docshim_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/peixotoh/docshim"
)

type DocshimTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *DocshimTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *DocshimTestSuite) TestDefaultsToMemoryStore() {
	db := docshim.New()
	s.Require().NoError(db.Connect(s.ctx))

	rec, err := db.Create(s.ctx, "Widget", docshim.Record{"name": "a"})
	s.NoError(err)
	s.True(strings.HasPrefix(rec["id"].(string), "Widget/"))
}

func (s *DocshimTestSuite) TestSharedManager() {
	manager := docshim.NewMemoryManager()
	first := docshim.New(docshim.WithConnectionManager(manager))
	second := docshim.New(docshim.WithConnectionManager(manager))
	s.Require().NoError(first.Connect(s.ctx))
	s.Require().NoError(second.Connect(s.ctx))

	rec, err := first.Create(s.ctx, "Widget", docshim.Record{"name": "a"})
	s.Require().NoError(err)

	got, err := second.FindByLocator(s.ctx, "Widget", rec["id"].(string))
	s.NoError(err)
	s.Equal("a", got["name"])
}

func (s *DocshimTestSuite) TestDefineRegistersProperties() {
	models := docshim.NewModels()
	db := docshim.New(docshim.WithModelRegistry(models))
	s.Require().NoError(db.Connect(s.ctx))

	definition := docshim.Record{
		"name":  docshim.Record{"type": "string"},
		"watts": docshim.Record{"type": "number"},
	}
	s.Require().NoError(db.Define(s.ctx, "Widget", definition))

	props, err := db.Describe(s.ctx, "Widget")
	s.NoError(err)
	s.Equal(definition, props)
}

func (s *DocshimTestSuite) TestDefineDerivesIdentityField() {
	models := docshim.NewModels()
	db := docshim.New(docshim.WithModelRegistry(models))
	s.Require().NoError(db.Connect(s.ctx))

	s.Require().NoError(db.Define(s.ctx, "Widget", docshim.Record{
		"uri":  docshim.Record{"type": "string", "id": true},
		"name": docshim.Record{"type": "string"},
	}))
	s.Equal("uri", models.Meta("Widget").IdentityField)

	rec, err := db.Create(s.ctx, "Widget", docshim.Record{"name": "a"})
	s.NoError(err)
	s.Contains(rec, "uri")
	s.NotContains(rec, "id")
}

func (s *DocshimTestSuite) TestRegisterKeepsNamespace() {
	models := docshim.NewModels()
	models.Register("Widget", docshim.ModelMeta{Namespace: "widgets"})

	models.Define("Widget", docshim.Record{"name": docshim.Record{"type": "string"}})
	meta := models.Meta("Widget")
	s.Equal("widgets", meta.Namespace)
	s.NotNil(meta.Properties)
}

func (s *DocshimTestSuite) TestDescribeUnknownModel() {
	db := docshim.New()
	s.Require().NoError(db.Connect(s.ctx))

	props, err := db.Describe(s.ctx, "Unknown")
	s.NoError(err)
	s.Nil(props)
}

func TestDocshimTestSuite(t *testing.T) {
	suite.Run(t, new(DocshimTestSuite))
}
