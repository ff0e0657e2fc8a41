package normalize

import (
	"context"
	"encoding/json"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

// Conflation dimension names accepted on the wire.
const (
	ConflationGeneProtein  = "GeneProtein"
	ConflationDrugChemical = "DrugChemical"
)

// AllowedConflations lists the supported conflation dimensions.
func AllowedConflations() []string {
	return []string{ConflationGeneProtein, ConflationDrugChemical}
}

// ValidateConflations rejects unknown conflation names.
func ValidateConflations(names []string) error {
	for _, n := range names {
		if n != ConflationGeneProtein && n != ConflationDrugChemical {
			return errors.Newf(errors.ErrCodeUnknownConflation,
				"unrecognized conflation %q", n)
		}
	}
	return nil
}

// Conflator reads the two conflation overlay stores and groups the results
// per canonical. Results from both dimensions for the same canonical are
// concatenated, gene-protein first, deduplicated in first-occurrence order.
type Conflator struct {
	store  redis.Store
	logger logging.Logger
}

func NewConflator(store redis.Store, log logging.Logger) *Conflator {
	return &Conflator{store: store, logger: log.Named("conflator")}
}

// Conflate returns, for each canonical, the ordered list of canonicals its
// clique fuses with. Canonicals with no conflation are absent from the map.
func (c *Conflator) Conflate(ctx context.Context, canonicals []string, geneProtein, drugChemical bool) (map[string][]string, error) {
	if len(canonicals) == 0 || (!geneProtein && !drugChemical) {
		return nil, nil
	}

	grouped := map[string][]string{}
	appendStore := func(store string) error {
		vals, err := c.store.MGet(ctx, store, canonicals)
		if err != nil {
			return err
		}
		for i, v := range vals {
			if v == nil {
				continue
			}
			var others []string
			if err := json.Unmarshal([]byte(*v), &others); err != nil {
				c.logger.Warn("Malformed conflation value, skipping",
					logging.String("store", store),
					logging.String("canonical", canonicals[i]),
					logging.Err(err),
				)
				continue
			}
			grouped[canonicals[i]] = append(grouped[canonicals[i]], others...)
		}
		return nil
	}

	if geneProtein {
		if err := appendStore(config.StoreGeneProtein); err != nil {
			return nil, err
		}
	}
	if drugChemical {
		if err := appendStore(config.StoreChemicalDrug); err != nil {
			return nil, err
		}
	}

	for canon, others := range grouped {
		grouped[canon] = dedupeStrings(others)
	}
	return grouped, nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
