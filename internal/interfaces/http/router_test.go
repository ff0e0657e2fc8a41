package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/biograph-io/nodenorm/internal/config"
	nodehttp "github.com/biograph-io/nodenorm/internal/interfaces/http"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/handlers"
	"github.com/biograph-io/nodenorm/internal/interfaces/http/middleware"
	"github.com/biograph-io/nodenorm/internal/normalize"
	"github.com/biograph-io/nodenorm/internal/setid"
	"github.com/biograph-io/nodenorm/internal/testutil"
	"github.com/biograph-io/nodenorm/internal/trapi"
)

type RouterTestSuite struct {
	suite.Suite
	store  *testutil.MemStore
	router http.Handler
}

func (s *RouterTestSuite) SetupTest() {
	s.store = testutil.NewMemStore()
	logger := testutil.NewMockLogger()

	resolver := normalize.NewResolver(s.store, normalize.DefaultLabelPolicy(), logger)
	normalizer := trapi.NewNormalizer(resolver, s.store, logger)
	generator := setid.NewGenerator(resolver, logger)

	cfg := &config.Config{Version: "test", BabelVersion: "2026jan1"}
	cfg.Stores.BatchSize = 2500

	s.router = nodehttp.NewRouter(nodehttp.RouterConfig{
		NodesHandler:   handlers.NewNodesHandler(resolver, logger),
		MessageHandler: handlers.NewMessageHandler(normalizer, logger),
		SetIDHandler:   handlers.NewSetIDHandler(generator, logger),
		MetaHandler:    handlers.NewMetaHandler(s.store, logger),
		StatusHandler:  handlers.NewStatusHandler(s.store, cfg, logger),
		CORSMiddleware: middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()),
		Logger:         logger,
	})

	seed := func(store, key, value string) { s.store.Set(store, key, value) }
	seed(config.StoreEqToCanon, "MONDO:0005002", "MONDO:0005002")
	seed(config.StoreEqToCanon, "DOID:3083", "MONDO:0005002")
	seed(config.StoreCanonMembers, "MONDO:0005002",
		`[{"i":"MONDO:0005002","l":"chronic obstructive pulmonary disease"},{"i":"DOID:3083","l":"COPD"}]`)
	seed(config.StoreCanonCategory, "MONDO:0005002", "biolink:Disease")
	seed(config.StoreInfoContent, "MONDO:0005002", "74.14")
	seed(config.StorePrefixCounts, "biolink:Disease", `{"MONDO":120,"DOID":80}`)
	s.store.SetList(config.StorePrefixCounts, "semantic_types",
		"biolink:Disease", "biolink:Gene", "biolink:Disease")
}

func (s *RouterTestSuite) request(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterTestSuite) TestGetNormalizedNodes() {
	rec := s.request(http.MethodGet, "/get_normalized_nodes?curie=DOID:3083&curie=UNKNOWN:1", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), "null", string(body["UNKNOWN:1"]))

	var rec1 struct {
		ID struct {
			Identifier string `json:"identifier"`
		} `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(body["DOID:3083"], &rec1))
	assert.Equal(s.T(), "MONDO:0005002", rec1.ID.Identifier)
}

func (s *RouterTestSuite) TestGetNormalizedNodesEmptyIs422() {
	rec := s.request(http.MethodGet, "/get_normalized_nodes", "")
	s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "value_error.list.min_items")
	assert.Contains(s.T(), rec.Body.String(), `"loc":["query","curie"]`)
}

func (s *RouterTestSuite) TestPostNormalizedNodes() {
	rec := s.request(http.MethodPost, "/get_normalized_nodes",
		`{"curies":["DOID:3083"],"description":true}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "MONDO:0005002")
}

func (s *RouterTestSuite) TestPostNormalizedNodesEmptyIs422() {
	rec := s.request(http.MethodPost, "/get_normalized_nodes", `{"curies":[]}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *RouterTestSuite) TestGetSetID() {
	rec := s.request(http.MethodGet, "/get_setid?curie=MONDO:0005002&curie=DOID:3083", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp setid.Response
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(s.T(), []string{"MONDO:0005002"}, resp.NormalizedCuries)
	assert.True(s.T(), strings.HasPrefix(resp.SetID, "uuid:"))
}

func (s *RouterTestSuite) TestPostSetID() {
	rec := s.request(http.MethodPost, "/get_setid",
		`{"a":{"curies":["MONDO:0005002"]},"b":{"curies":["DOID:3083"],"conflations":["GeneProtein"]}}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp map[string]setid.Response
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp, 2)
	assert.Equal(s.T(), resp["a"].SetID, resp["b"].SetID)
}

func (s *RouterTestSuite) TestAllowedConflations() {
	rec := s.request(http.MethodGet, "/get_allowed_conflations", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	assert.JSONEq(s.T(), `["GeneProtein","DrugChemical"]`, rec.Body.String())
}

func (s *RouterTestSuite) TestSemanticTypes() {
	rec := s.request(http.MethodGet, "/get_semantic_types", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		SemanticTypes struct {
			Types []string `json:"types"`
		} `json:"semantic_types"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), []string{"biolink:Disease", "biolink:Gene"}, body.SemanticTypes.Types)
}

func (s *RouterTestSuite) TestSemanticTypesEmptyIs404() {
	store := testutil.NewMemStore()
	logger := testutil.NewMockLogger()
	router := nodehttp.NewRouter(nodehttp.RouterConfig{
		MetaHandler: handlers.NewMetaHandler(store, logger),
	})
	req := httptest.NewRequest(http.MethodGet, "/get_semantic_types", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *RouterTestSuite) TestCuriePrefixes() {
	rec := s.request(http.MethodGet, "/get_curie_prefixes?semantic_type=biolink:Disease", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]struct {
		CuriePrefix map[string]interface{} `json:"curie_prefix"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), float64(120), body["biolink:Disease"].CuriePrefix["MONDO"])
}

func (s *RouterTestSuite) TestCuriePrefixesUnknownType() {
	rec := s.request(http.MethodGet, "/get_curie_prefixes?semantic_type=biolink:Nope", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "Not found")
}

func (s *RouterTestSuite) TestStatus() {
	rec := s.request(http.MethodGet, "/status", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body handlers.StatusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), "nodenorm", body.Service)
	assert.Equal(s.T(), "2026jan1", body.BabelVersion)
	assert.Len(s.T(), body.KeyCounts, len(config.StoreNames))
}

func (s *RouterTestSuite) TestQueryNormalizesMessage() {
	rec := s.request(http.MethodPost, "/query", `{
		"message": {
			"query_graph": {"nodes": {"n0": {"ids": ["DOID:3083"]}}, "edges": {}},
			"knowledge_graph": {"nodes": {"DOID:3083": {"name": "copd"}}, "edges": {}}
		},
		"workflow": [{"id": "lookup"}]
	}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(s.T(), body, `"MONDO:0005002"`)
	assert.Contains(s.T(), body, `"workflow"`, "unknown request fields are preserved")
}

func (s *RouterTestSuite) TestQueryWithoutMessageIs400() {
	rec := s.request(http.MethodPost, "/query", `{"not_message": {}}`)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestAsyncQueryDeliversToCallback() {
	received := make(chan []byte, 1)
	var calls int32
	callback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer callback.Close()

	rec := s.request(http.MethodPost, "/asyncquery", `{
		"callback": "`+callback.URL+`",
		"message": {"knowledge_graph": {"nodes": {"DOID:3083": {}}, "edges": {}}}
	}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	assert.Contains(s.T(), rec.Body.String(), "Query commenced. Will send result to "+callback.URL)

	select {
	case body := <-received:
		assert.Contains(s.T(), string(body), "MONDO:0005002")
	case <-time.After(5 * time.Second):
		s.T().Fatal("callback was not invoked")
	}
	assert.Equal(s.T(), int32(1), atomic.LoadInt32(&calls))
}

func (s *RouterTestSuite) TestAsyncQueryWithoutCallbackIs422() {
	rec := s.request(http.MethodPost, "/asyncquery", `{"message": {}}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *RouterTestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/get_normalized_nodes", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)
	assert.Equal(s.T(), "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
