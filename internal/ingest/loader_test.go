package ingest_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/ingest"
	"github.com/biograph-io/nodenorm/internal/normalize"
	"github.com/biograph-io/nodenorm/internal/testutil"
)

// memSink backs the ingest write surface with the in-memory store so loads
// can be verified through the same reads the serve path uses.
type memSink struct {
	mem *testutil.MemStore
}

func (s *memSink) Writer(store string) (ingest.Writer, error) {
	return &memWriter{store: store, mem: s.mem}, nil
}

func (s *memSink) Get(ctx context.Context, store, key string) (*string, error) {
	return s.mem.Get(ctx, store, key)
}

func (s *memSink) LRange(ctx context.Context, store, key string, start, stop int64) ([]string, error) {
	return s.mem.LRange(ctx, store, key, start, stop)
}

type memWriter struct {
	store   string
	mem     *testutil.MemStore
	written int64
}

func (w *memWriter) Set(ctx context.Context, key, value string) error {
	w.mem.Set(w.store, key, value)
	w.written++
	return nil
}

func (w *memWriter) LPush(ctx context.Context, key string, values ...string) error {
	current, err := w.mem.LRange(ctx, w.store, key, 0, -1)
	if err != nil {
		return err
	}
	pushed := make([]string, 0, len(values)+len(current))
	for i := len(values) - 1; i >= 0; i-- {
		pushed = append(pushed, values[i])
	}
	pushed = append(pushed, current...)
	w.mem.SetList(w.store, key, pushed...)
	w.written++
	return nil
}

func (w *memWriter) Flush(ctx context.Context) error { return nil }

func (w *memWriter) Written() int64 { return w.written }

const (
	diseaseLine = `{"type":"biolink:Disease","ic":"74.14","identifiers":[{"i":"MONDO:0005002","l":"chronic obstructive pulmonary disease","d":["A progressive lung disorder."]},{"i":"Orphanet:900","l":"COPD"}]}`
	geneLine    = `{"type":"biolink:Gene","ic":85,"identifiers":[{"i":"NCBIGene:1017","l":"CDK2"},{"i":"HGNC:1771"}]}`
)

type LoaderTestSuite struct {
	suite.Suite
	mem    *testutil.MemStore
	loader *ingest.Loader
	cfg    config.IngestConfig
}

func (s *LoaderTestSuite) SetupTest() {
	s.mem = testutil.NewMemStore()

	schema, err := ingest.LoadSchema("")
	s.Require().NoError(err)
	s.loader = ingest.NewLoader(&memSink{mem: s.mem}, biolink.Default(), schema, testutil.NewMockLogger())

	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "compendium.jsonl"),
		[]byte(diseaseLine+"\n"+geneLine+"\n"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "GeneProtein.txt"),
		[]byte(`["NCBIGene:1017","UniProtKB:P24941"]`+"\n"), 0o644))

	s.cfg = config.IngestConfig{
		CompendiumDirectory: dir,
		ConflationDirectory: dir,
		DataFiles:           []string{"compendium.jsonl"},
		Conflations: []config.ConflationSource{
			{File: "GeneProtein.txt", Store: config.StoreGeneProtein},
		},
	}
}

func (s *LoaderTestSuite) get(store, key string) *string {
	val, err := s.mem.Get(context.Background(), store, key)
	s.Require().NoError(err)
	return val
}

func (s *LoaderTestSuite) TestRunWritesAllStores() {
	s.Require().NoError(s.loader.Run(context.Background(), s.cfg))

	// Member-to-canonical keys are uppercased; values are not.
	canon := s.get(config.StoreEqToCanon, "ORPHANET:900")
	s.Require().NotNil(canon)
	assert.Equal(s.T(), "MONDO:0005002", *canon)
	assert.Nil(s.T(), s.get(config.StoreEqToCanon, "Orphanet:900"))

	// The member list is stored verbatim, descriptions included.
	members := s.get(config.StoreCanonMembers, "MONDO:0005002")
	s.Require().NotNil(members)
	assert.JSONEq(s.T(),
		`[{"i":"MONDO:0005002","l":"chronic obstructive pulmonary disease","d":["A progressive lung disorder."]},{"i":"Orphanet:900","l":"COPD"}]`,
		*members)

	category := s.get(config.StoreCanonCategory, "NCBIGene:1017")
	s.Require().NotNil(category)
	assert.Equal(s.T(), "biolink:Gene", *category)

	// String and numeric ic values both land as decimal strings.
	ic := s.get(config.StoreInfoContent, "MONDO:0005002")
	s.Require().NotNil(ic)
	assert.Equal(s.T(), "74.14", *ic)
	ic = s.get(config.StoreInfoContent, "NCBIGene:1017")
	s.Require().NotNil(ic)
	assert.Equal(s.T(), "85", *ic)

	// The conflation line is findable through every one of its members.
	for _, member := range []string{"NCBIGene:1017", "UniProtKB:P24941"} {
		group := s.get(config.StoreGeneProtein, member)
		s.Require().NotNil(group)
		assert.JSONEq(s.T(), `["NCBIGene:1017","UniProtKB:P24941"]`, *group)
	}
}

func (s *LoaderTestSuite) TestRunAccumulatesPrefixStatistics() {
	s.Require().NoError(s.loader.Run(context.Background(), s.cfg))

	raw := s.get(config.StorePrefixCounts, "biolink:Disease")
	s.Require().NotNil(raw)
	var counts map[string]int
	s.Require().NoError(json.Unmarshal([]byte(*raw), &counts))
	assert.Equal(s.T(), map[string]int{"MONDO": 1, "Orphanet": 1}, counts)

	// Ancestor categories pick up every clique below them.
	raw = s.get(config.StorePrefixCounts, "biolink:NamedThing")
	s.Require().NotNil(raw)
	counts = nil
	s.Require().NoError(json.Unmarshal([]byte(*raw), &counts))
	assert.Equal(s.T(), map[string]int{"MONDO": 1, "Orphanet": 1, "NCBIGene": 1, "HGNC": 1}, counts)

	types, err := s.mem.LRange(context.Background(), config.StorePrefixCounts, "semantic_types", 0, -1)
	s.Require().NoError(err)
	assert.Contains(s.T(), types, "biolink:Disease")
	assert.Contains(s.T(), types, "biolink:Gene")
	assert.Contains(s.T(), types, "biolink:BiologicalEntity")
}

func (s *LoaderTestSuite) TestPrefixStatisticsMergeWithPriorLoads() {
	s.mem.Set(config.StorePrefixCounts, "biolink:Disease", `{"MONDO":5,"DOID":2}`)
	s.mem.SetList(config.StorePrefixCounts, "semantic_types", "biolink:Disease")

	s.Require().NoError(s.loader.Run(context.Background(), s.cfg))

	raw := s.get(config.StorePrefixCounts, "biolink:Disease")
	s.Require().NotNil(raw)
	var counts map[string]int
	s.Require().NoError(json.Unmarshal([]byte(*raw), &counts))
	assert.Equal(s.T(), map[string]int{"MONDO": 6, "DOID": 2, "Orphanet": 1}, counts)

	types, err := s.mem.LRange(context.Background(), config.StorePrefixCounts, "semantic_types", 0, -1)
	s.Require().NoError(err)
	seen := 0
	for _, t := range types {
		if t == "biolink:Disease" {
			seen++
		}
	}
	assert.Equal(s.T(), 1, seen, "already listed categories are not pushed again")
}

func (s *LoaderTestSuite) TestInvalidCompendiumBlocksTheWholeRun() {
	dir := s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "bad.jsonl"),
		[]byte(`{"identifiers":[{"i":"MONDO:1"}]}`+"\n"), 0o644))
	cfg := s.cfg
	cfg.CompendiumDirectory = dir
	cfg.DataFiles = []string{"bad.jsonl"}

	s.Require().Error(s.loader.Run(context.Background(), cfg))
	assert.Nil(s.T(), s.get(config.StoreEqToCanon, "MONDO:1"))
}

func (s *LoaderTestSuite) TestLoadedStoresServeNormalization() {
	s.Require().NoError(s.loader.Run(context.Background(), s.cfg))

	resolver := normalize.NewResolver(s.mem, normalize.DefaultLabelPolicy(), testutil.NewMockLogger())
	records, err := resolver.Normalize(context.Background(),
		[]string{"orphanet:900"}, normalize.Options{ConflateGeneProtein: true})
	s.Require().NoError(err)

	rec := records.Get("orphanet:900")
	s.Require().NotNil(rec)
	assert.Equal(s.T(), "MONDO:0005002", rec.ID.Identifier)
	assert.Equal(s.T(), "chronic obstructive pulmonary disease", rec.ID.Label)
	s.Require().NotNil(rec.InformationContent)
	assert.InDelta(s.T(), 74.1, *rec.InformationContent, 0.001)
	assert.Contains(s.T(), rec.Type, "biolink:NamedThing")
	assert.NotContains(s.T(), rec.Type, "biolink:Entity")
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderTestSuite))
}
