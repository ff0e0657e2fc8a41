package setid_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/normalize"
	"github.com/biograph-io/nodenorm/internal/setid"
	"github.com/biograph-io/nodenorm/internal/testutil"
)

type SetIDTestSuite struct {
	suite.Suite
	store *testutil.MemStore
	gen   *setid.Generator
}

func (s *SetIDTestSuite) SetupTest() {
	s.store = testutil.NewMemStore()
	resolver := normalize.NewResolver(s.store, normalize.DefaultLabelPolicy(), testutil.NewMockLogger())
	s.gen = setid.NewGenerator(resolver, testutil.NewMockLogger())

	seed := func(store, key, value string) { s.store.Set(store, key, value) }

	// Two disease cliques, one reachable from a DOID alias.
	seed(config.StoreEqToCanon, "MONDO:0005002", "MONDO:0005002")
	seed(config.StoreEqToCanon, "MONDO:0005003", "MONDO:0005003")
	seed(config.StoreEqToCanon, "DOID:3812", "MONDO:0005003")
	seed(config.StoreCanonMembers, "MONDO:0005002", `[{"i":"MONDO:0005002"}]`)
	seed(config.StoreCanonMembers, "MONDO:0005003", `[{"i":"MONDO:0005003"}]`)
	seed(config.StoreCanonCategory, "MONDO:0005002", "biolink:Disease")
	seed(config.StoreCanonCategory, "MONDO:0005003", "biolink:Disease")

	// Water: a chemical whose drug-chemical overlay promotes the CHEBI head.
	seed(config.StoreEqToCanon, "UNII:63M8RYN44N", "PUBCHEM.COMPOUND:10129877")
	seed(config.StoreEqToCanon, "PUBCHEM.COMPOUND:10129877", "PUBCHEM.COMPOUND:10129877")
	seed(config.StoreEqToCanon, "CHEBI:15377", "CHEBI:15377")
	seed(config.StoreCanonMembers, "PUBCHEM.COMPOUND:10129877",
		`[{"i":"PUBCHEM.COMPOUND:10129877"},{"i":"UNII:63M8RYN44N"}]`)
	seed(config.StoreCanonMembers, "CHEBI:15377", `[{"i":"CHEBI:15377","l":"water"}]`)
	seed(config.StoreCanonCategory, "PUBCHEM.COMPOUND:10129877", "biolink:SmallMolecule")
	seed(config.StoreCanonCategory, "CHEBI:15377", "biolink:SmallMolecule")
	seed(config.StoreChemicalDrug, "PUBCHEM.COMPOUND:10129877",
		`["CHEBI:15377","PUBCHEM.COMPOUND:10129877"]`)
}

func (s *SetIDTestSuite) generate(curies, conflations []string) *setid.Response {
	resp, err := s.gen.Generate(context.Background(), curies, conflations)
	s.Require().NoError(err)
	return resp
}

func (s *SetIDTestSuite) TestSimplePair() {
	resp := s.generate([]string{"MONDO:0005003", "MONDO:0005002"}, nil)
	assert.Equal(s.T(), []string{"MONDO:0005002", "MONDO:0005003"}, resp.NormalizedCuries)
	assert.Equal(s.T(), "MONDO:0005002||MONDO:0005003", resp.NormalizedString)
	assert.Equal(s.T(), "uuid:bc2ef4ca-df4f-51ee-b66d-395d31423bd8", resp.SetID)
}

func (s *SetIDTestSuite) TestGeneProteinOnly() {
	resp := s.generate(
		[]string{"DOID:3812", "MONDO:0005002", "MONDO:0005003", "UNII:63M8RYN44N", ""},
		[]string{"GeneProtein"},
	)
	assert.Empty(s.T(), resp.Error)
	assert.Equal(s.T(),
		[]string{"", "MONDO:0005002", "MONDO:0005003", "PUBCHEM.COMPOUND:10129877"},
		resp.NormalizedCuries)
	assert.Equal(s.T(), "uuid:08da0da0-4b47-55e6-b9b2-73ead9921494", resp.SetID)
}

func (s *SetIDTestSuite) TestBothConflations() {
	resp := s.generate(
		[]string{"DOID:3812", "MONDO:0005002", "MONDO:0005003", "UNII:63M8RYN44N", ""},
		[]string{"GeneProtein", "DrugChemical"},
	)
	assert.Empty(s.T(), resp.Error)
	assert.Equal(s.T(),
		[]string{"", "CHEBI:15377", "MONDO:0005002", "MONDO:0005003"},
		resp.NormalizedCuries)
	assert.Equal(s.T(), "uuid:4b54135a-a151-561b-8b25-8a5a5b710700", resp.SetID)
}

func (s *SetIDTestSuite) TestUnknownConflationName() {
	resp := s.generate([]string{"MONDO:0005002"}, []string{"GeneFamily"})
	assert.NotEmpty(s.T(), resp.Error)
	assert.Empty(s.T(), resp.SetID)
	assert.Empty(s.T(), resp.NormalizedCuries)
}

func (s *SetIDTestSuite) TestEmptyInput() {
	resp := s.generate(nil, nil)
	assert.Empty(s.T(), resp.NormalizedCuries)
	assert.Empty(s.T(), resp.NormalizedString)
	assert.Empty(s.T(), resp.SetID)
}

func (s *SetIDTestSuite) TestDeterministic() {
	a := s.generate([]string{"MONDO:0005002", "MONDO:0005003"}, nil)
	b := s.generate([]string{"MONDO:0005003", "DOID:3812", "MONDO:0005002"}, nil)
	assert.Equal(s.T(), a.SetID, b.SetID)
}

func TestSetIDSuite(t *testing.T) {
	suite.Run(t, new(SetIDTestSuite))
}
