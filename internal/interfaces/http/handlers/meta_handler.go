package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/normalize"
)

// MetaHandler serves the discovery endpoints: semantic types, prefix
// counts, and allowed conflations.
type MetaHandler struct {
	store  redis.Store
	logger logging.Logger
}

func NewMetaHandler(store redis.Store, logger logging.Logger) *MetaHandler {
	return &MetaHandler{store: store, logger: logger}
}

// AllowedConflations handles GET /get_allowed_conflations.
func (h *MetaHandler) AllowedConflations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, normalize.AllowedConflations())
}

// SemanticTypes handles GET /get_semantic_types.
func (h *MetaHandler) SemanticTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.store.LRange(r.Context(), config.StorePrefixCounts, "semantic_types", 0, -1)
	if err != nil {
		h.logger.Error("Semantic type listing failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	seen := map[string]bool{}
	distinct := make([]string, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
	}
	if len(distinct) == 0 {
		writeError(w, http.StatusNotFound, "No semantic types discovered.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"semantic_types": map[string]interface{}{"types": distinct},
	})
}

// CuriePrefixes handles GET /get_curie_prefixes with repeatable
// semantic_type parameters.
func (h *MetaHandler) CuriePrefixes(w http.ResponseWriter, r *http.Request) {
	h.respondPrefixes(w, r, r.URL.Query()["semantic_type"])
}

// SemanticTypesRequest is the POST /get_curie_prefixes body.
type SemanticTypesRequest struct {
	SemanticTypes []string `json:"semantic_types"`
}

// CuriePrefixesPost handles POST /get_curie_prefixes.
func (h *MetaHandler) CuriePrefixesPost(w http.ResponseWriter, r *http.Request) {
	var req SemanticTypesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	h.respondPrefixes(w, r, req.SemanticTypes)
}

// curiePivot wraps per-category prefix counts.
type curiePivot struct {
	CuriePrefix map[string]interface{} `json:"curie_prefix"`
}

func (h *MetaHandler) respondPrefixes(w http.ResponseWriter, r *http.Request, semanticTypes []string) {
	if len(semanticTypes) == 0 {
		types, err := h.store.LRange(r.Context(), config.StorePrefixCounts, "semantic_types", 0, -1)
		if err != nil {
			h.logger.Error("Semantic type listing failed", logging.Err(err))
			writeAppError(w, err)
			return
		}
		semanticTypes = types
	}

	out := map[string]curiePivot{}
	for _, typ := range semanticTypes {
		counts, err := h.prefixCounts(r.Context(), typ)
		if err != nil {
			h.logger.Error("Prefix count lookup failed",
				logging.String("semantic_type", typ), logging.Err(err))
			writeAppError(w, err)
			return
		}
		out[typ] = curiePivot{CuriePrefix: counts}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MetaHandler) prefixCounts(ctx context.Context, semanticType string) (map[string]interface{}, error) {
	val, err := h.store.Get(ctx, config.StorePrefixCounts, semanticType)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return map[string]interface{}{semanticType: "Not found"}, nil
	}
	var counts map[string]interface{}
	if err := json.Unmarshal([]byte(*val), &counts); err != nil {
		h.logger.Warn("Malformed prefix count value",
			logging.String("semantic_type", semanticType), logging.Err(err))
		return map[string]interface{}{semanticType: "Not found"}, nil
	}
	return counts, nil
}
