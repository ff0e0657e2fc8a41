// Package setid computes stable identifiers for sets of normalized curies.
package setid

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/normalize"
)

// Namespace for set-id UUIDv5 values. Fixed forever; changing it changes
// every issued set-id.
var Namespace = uuid.MustParse("14ef168c-14cb-4979-8442-da6aaca55572")

const joiner = "||"

// Response is the set-id answer for one curie collection.
type Response struct {
	Curies           []string `json:"curies"`
	Conflations      []string `json:"conflations"`
	NormalizedCuries []string `json:"normalized_curies,omitempty"`
	NormalizedString string   `json:"normalized_string,omitempty"`
	SetID            string   `json:"setid,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Generator normalizes curie sets and derives their set-id.
type Generator struct {
	resolver *normalize.Resolver
	logger   logging.Logger
}

func NewGenerator(resolver *normalize.Resolver, log logging.Logger) *Generator {
	return &Generator{resolver: resolver, logger: log.Named("setid")}
}

// Generate normalizes the curies under the named conflations, sorts and
// deduplicates the preferred identifiers, and hashes the joined string into a
// UUIDv5. Unknown conflation names produce an in-band error, not a set-id.
// Deterministic for a given input set and flag set.
func (g *Generator) Generate(ctx context.Context, curies, conflations []string) (*Response, error) {
	resp := &Response{Curies: curies, Conflations: conflations}
	if resp.Curies == nil {
		resp.Curies = []string{}
	}
	if resp.Conflations == nil {
		resp.Conflations = []string{}
	}

	if err := normalize.ValidateConflations(conflations); err != nil {
		resp.Error = err.Error()
		return resp, nil
	}

	geneProtein := false
	drugChemical := false
	for _, c := range conflations {
		switch c {
		case normalize.ConflationGeneProtein:
			geneProtein = true
		case normalize.ConflationDrugChemical:
			drugChemical = true
		}
	}

	records, err := g.resolver.Normalize(ctx, curies, normalize.Options{
		ConflateGeneProtein:  geneProtein,
		ConflateDrugChemical: drugChemical,
	})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var normalized []string
	for _, curie := range curies {
		id := curie
		if rec := records.Get(curie); rec != nil && rec.ID.Identifier != "" {
			id = rec.ID.Identifier
		}
		if !seen[id] {
			seen[id] = true
			normalized = append(normalized, id)
		}
	}
	sort.Strings(normalized)
	resp.NormalizedCuries = normalized
	if len(normalized) == 0 {
		return resp, nil
	}

	resp.NormalizedString = strings.Join(normalized, joiner)
	resp.SetID = "uuid:" + uuid.NewSHA1(Namespace, []byte(resp.NormalizedString)).String()
	return resp, nil
}
