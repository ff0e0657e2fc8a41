package normalize

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
)

// Options selects the optional parts of a normalization answer.
type Options struct {
	ConflateGeneProtein    bool
	ConflateDrugChemical   bool
	IncludeDescriptions    bool
	IncludeIndividualTypes bool
}

// CurieCounter receives per-request input and miss counts. Satisfied by the
// prometheus collector.
type CurieCounter interface {
	CountCuries(total, missed int)
}

// Resolver assembles normalized clique records from the keyed stores.
type Resolver struct {
	store     redis.Store
	conflator *Conflator
	toolkit   *biolink.Toolkit
	policy    *LabelPolicy
	logger    logging.Logger
	counter   CurieCounter
}

func NewResolver(store redis.Store, policy *LabelPolicy, log logging.Logger) *Resolver {
	return &Resolver{
		store:     store,
		conflator: NewConflator(store, log),
		toolkit:   biolink.Default(),
		policy:    policy,
		logger:    log.Named("resolver"),
	}
}

// SetCurieCounter attaches a metrics counter. Must be called before serving.
func (r *Resolver) SetCurieCounter(c CurieCounter) { r.counter = c }

// clique is the in-memory working form of one canonical's data before record
// construction.
type clique struct {
	members    []CliqueMember
	categories []string
}

// Normalize maps each input identifier to its clique record, nil when the
// identifier is unknown. Answer order follows input order.
func (r *Resolver) Normalize(ctx context.Context, curies []string, opts Options) (*RecordSet, error) {
	out := NewRecordSet()
	if len(curies) == 0 {
		return out, nil
	}

	keys := make([]string, len(curies))
	for i, c := range curies {
		keys[i] = strings.ToUpper(c)
	}
	canons, err := r.store.MGet(ctx, config.StoreEqToCanon, keys)
	if err != nil {
		return nil, err
	}

	var present []string
	seen := map[string]bool{}
	for _, c := range canons {
		if c != nil && !seen[*c] {
			seen[*c] = true
			present = append(present, *c)
		}
	}

	cliques := map[string]*clique{}
	infoContents := map[string]*float64{}
	if len(present) > 0 {
		if infoContents, err = r.fetchInfoContents(ctx, present); err != nil {
			return nil, err
		}
		if cliques, err = r.fetchCliques(ctx, present); err != nil {
			return nil, err
		}
		if opts.ConflateGeneProtein || opts.ConflateDrugChemical {
			if err := r.applyConflation(ctx, present, cliques, opts); err != nil {
				return nil, err
			}
		}
	}

	missed := 0
	for i, curie := range curies {
		if canons[i] == nil {
			missed++
			out.Put(curie, nil)
			continue
		}
		rec := r.buildRecord(curie, *canons[i], cliques[*canons[i]], infoContents[*canons[i]], opts)
		if rec == nil {
			missed++
		}
		out.Put(curie, rec)
	}
	if r.counter != nil {
		r.counter.CountCuries(len(curies), missed)
	}
	return out, nil
}

func (r *Resolver) fetchInfoContents(ctx context.Context, canonicals []string) (map[string]*float64, error) {
	vals, err := r.store.MGet(ctx, config.StoreInfoContent, canonicals)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*float64, len(canonicals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		ic, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			r.logger.Warn("Malformed information content value",
				logging.String("canonical", canonicals[i]),
				logging.String("value", *v),
			)
			continue
		}
		rounded := roundIC(ic)
		out[canonicals[i]] = &rounded
	}
	return out, nil
}

// fetchCliques loads members and the expanded category chain for each id.
// Every member is tagged with its clique's leaf category. An id with no
// member entry yields a clique with nil members, which later resolves to an
// absent answer.
func (r *Resolver) fetchCliques(ctx context.Context, ids []string) (map[string]*clique, error) {
	memberVals, err := r.store.MGet(ctx, config.StoreCanonMembers, ids)
	if err != nil {
		return nil, err
	}
	typeVals, err := r.store.MGet(ctx, config.StoreCanonCategory, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*clique, len(ids))
	for i, id := range ids {
		cl := &clique{}
		if memberVals[i] != nil {
			if err := json.Unmarshal([]byte(*memberVals[i]), &cl.members); err != nil {
				r.logger.Warn("Malformed member list, treating as absent",
					logging.String("canonical", id),
					logging.Err(err),
				)
				cl.members = nil
			}
		}
		leaf := biolink.ClassNamedThing
		if typeVals[i] == nil {
			r.logger.Warn("No category stored, substituting the root",
				logging.String("canonical", id),
				logging.String("substitute", leaf),
			)
			cl.categories = []string{leaf}
		} else {
			leaf = *typeVals[i]
			cl.categories = r.toolkit.Ancestors(leaf)
		}
		for j := range cl.members {
			cl.members[j].category = leaf
		}
		out[id] = cl
	}
	return out, nil
}

// applyConflation fuses cliques along the requested overlays. A canonical
// with a non-empty conflation set has its members and categories rebuilt from
// the conflation list in stored order, because that order encodes the
// preferred clique head.
func (r *Resolver) applyConflation(ctx context.Context, canonicals []string, cliques map[string]*clique, opts Options) error {
	grouped, err := r.conflator.Conflate(ctx, canonicals,
		opts.ConflateGeneProtein, opts.ConflateDrugChemical)
	if err != nil {
		return err
	}
	if len(grouped) == 0 {
		return nil
	}

	var allOthers []string
	seen := map[string]bool{}
	for _, canon := range canonicals {
		for _, other := range grouped[canon] {
			if !seen[other] {
				seen[other] = true
				allOthers = append(allOthers, other)
			}
		}
	}
	others, err := r.fetchCliques(ctx, allOthers)
	if err != nil {
		return err
	}

	for _, canon := range canonicals {
		ys := grouped[canon]
		if len(ys) == 0 {
			continue
		}
		fused := &clique{}
		for _, other := range ys {
			oc := others[other]
			if oc == nil {
				continue
			}
			fused.members = append(fused.members, oc.members...)
			fused.categories = append(fused.categories, oc.categories...)
		}
		fused.categories = dedupeStrings(fused.categories)
		cliques[canon] = fused
	}
	return nil
}

func (r *Resolver) buildRecord(curie, canonical string, cl *clique, ic *float64, opts Options) *CliqueRecord {
	if cl == nil {
		return nil
	}
	members := make([]CliqueMember, 0, len(cl.members))
	for _, m := range cl.members {
		if m.Identifier == "" {
			r.logger.Warn("Dropping member with no identifier",
				logging.String("curie", curie),
				logging.String("canonical", canonical),
			)
			continue
		}
		members = append(members, m)
	}
	if len(members) == 0 {
		r.logger.Warn("Canonical resolved to an empty clique",
			logging.String("curie", curie),
			logging.String("canonical", canonical),
		)
		return nil
	}

	rec := &CliqueRecord{
		ID: Identifier{
			Identifier: members[0].Identifier,
			Label:      r.policy.PreferredLabel(members, cl.categories),
		},
		InformationContent: ic,
	}

	if opts.IncludeDescriptions {
		for _, m := range members {
			if len(m.Descriptions) > 0 && m.Descriptions[0] != "" {
				rec.ID.Description = m.Descriptions[0]
				break
			}
		}
	}

	rec.EquivalentIdentifiers = make([]EquivalentIdentifier, 0, len(members))
	for _, m := range members {
		eq := EquivalentIdentifier{Identifier: m.Identifier, Label: m.Label}
		if opts.IncludeDescriptions && len(m.Descriptions) > 0 {
			eq.Description = m.Descriptions[0]
		}
		if opts.IncludeIndividualTypes {
			eq.Type = m.category
		}
		rec.EquivalentIdentifiers = append(rec.EquivalentIdentifiers, eq)
	}

	rec.Type = make([]string, 0, len(cl.categories))
	for _, c := range cl.categories {
		if c != biolink.ClassEntity {
			rec.Type = append(rec.Type, c)
		}
	}
	return rec
}
