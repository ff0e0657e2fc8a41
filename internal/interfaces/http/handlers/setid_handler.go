package handlers

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/setid"
)

// SetIDHandler serves set identifier generation.
type SetIDHandler struct {
	generator *setid.Generator
	logger    logging.Logger
}

func NewSetIDHandler(generator *setid.Generator, logger logging.Logger) *SetIDHandler {
	return &SetIDHandler{generator: generator, logger: logger}
}

// Get handles GET /get_setid with repeatable curie and conflation params.
func (h *SetIDHandler) Get(w http.ResponseWriter, r *http.Request) {
	curies := r.URL.Query()["curie"]
	if len(curies) == 0 {
		writeValidationError(w, minItemsDetail("query", "curie"))
		return
	}
	conflations := r.URL.Query()["conflation"]

	resp, err := h.generator.Generate(r.Context(), curies, conflations)
	if err != nil {
		h.logger.Error("Set-id generation failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetIDQuery is one named curie collection in a batch request.
type SetIDQuery struct {
	Curies      []string `json:"curies"`
	Conflations []string `json:"conflations"`
}

// Post handles POST /get_setid with a mapping from name to query.
func (h *SetIDHandler) Post(w http.ResponseWriter, r *http.Request) {
	var queries map[string]SetIDQuery
	if err := json.NewDecoder(r.Body).Decode(&queries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]*setid.Response, len(queries))
	for _, name := range names {
		q := queries[name]
		resp, err := h.generator.Generate(r.Context(), q.Curies, q.Conflations)
		if err != nil {
			h.logger.Error("Set-id generation failed",
				logging.String("name", name), logging.Err(err))
			writeAppError(w, err)
			return
		}
		out[name] = resp
	}
	writeJSON(w, http.StatusOK, out)
}
