package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/normalize"
)

// NodesHandler serves identifier normalization lookups.
type NodesHandler struct {
	resolver *normalize.Resolver
	logger   logging.Logger
}

func NewNodesHandler(resolver *normalize.Resolver, logger logging.Logger) *NodesHandler {
	return &NodesHandler{resolver: resolver, logger: logger}
}

// CurieListRequest is the POST body. Booleans use pointers so an absent
// field keeps its documented default.
type CurieListRequest struct {
	Curies               []string `json:"curies"`
	Conflate             *bool    `json:"conflate"`
	DrugChemicalConflate *bool    `json:"drug_chemical_conflate"`
	Description          *bool    `json:"description"`
	IndividualTypes      *bool    `json:"individual_types"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Get handles GET /get_normalized_nodes with repeatable curie parameters.
func (h *NodesHandler) Get(w http.ResponseWriter, r *http.Request) {
	curies := r.URL.Query()["curie"]
	if len(curies) == 0 {
		writeValidationError(w, minItemsDetail("query", "curie"))
		return
	}
	opts := normalize.Options{
		ConflateGeneProtein:    queryBool(r, "conflate", true),
		ConflateDrugChemical:   queryBool(r, "drug_chemical_conflate", false),
		IncludeDescriptions:    queryBool(r, "description", false),
		IncludeIndividualTypes: queryBool(r, "individual_types", false),
	}
	h.respond(w, r, curies, opts)
}

// Post handles POST /get_normalized_nodes.
func (h *NodesHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req CurieListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Curies) == 0 {
		writeValidationError(w, minItemsDetail("body", "curies"))
		return
	}
	opts := normalize.Options{
		ConflateGeneProtein:    boolOr(req.Conflate, true),
		ConflateDrugChemical:   boolOr(req.DrugChemicalConflate, false),
		IncludeDescriptions:    boolOr(req.Description, false),
		IncludeIndividualTypes: boolOr(req.IndividualTypes, false),
	}
	h.respond(w, r, req.Curies, opts)
}

func (h *NodesHandler) respond(w http.ResponseWriter, r *http.Request, curies []string, opts normalize.Options) {
	records, err := h.resolver.Normalize(r.Context(), curies, opts)
	if err != nil {
		h.logger.Error("Normalization failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
