package normalize

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/biograph-io/nodenorm/pkg/errors"
)

// LabelPolicy decides which member label heads a clique. Loaded once at
// startup; the selection function is pure.
type LabelPolicy struct {
	// BoostPrefixes maps a category to identifier prefixes, best first.
	// When a clique's most specific category matches a key, members with an
	// earlier prefix are preferred label sources.
	BoostPrefixes map[string][]string `json:"preferred_name_boost_prefixes"`

	// DemoteLongerThan drops labels exceeding this length whenever at least
	// one shorter candidate survives.
	DemoteLongerThan int `json:"demote_labels_longer_than"`
}

// DefaultLabelPolicy mirrors the policy shipped with production deployments.
func DefaultLabelPolicy() *LabelPolicy {
	return &LabelPolicy{
		BoostPrefixes: map[string][]string{
			"biolink:ChemicalEntity": {
				"DRUGBANK", "GTOPDB", "DrugCentral", "CHEMBL.COMPOUND", "RXCUI",
			},
		},
		DemoteLongerThan: 40,
	}
}

// LoadLabelPolicy reads a policy document from disk.
func LoadLabelPolicy(path string) (*LabelPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "read label policy")
	}
	policy := DefaultLabelPolicy()
	if err := json.Unmarshal(raw, policy); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "parse label policy")
	}
	return policy, nil
}

func prefixOf(curie string) string {
	if idx := strings.IndexByte(curie, ':'); idx >= 0 {
		return curie[:idx]
	}
	return curie
}

// sortByBoostedPrefixes orders members by their prefix's position in the
// boost list. Members without a boosted prefix keep their relative order at
// the tail.
func sortByBoostedPrefixes(members []CliqueMember, prefixes []string) []CliqueMember {
	rank := make(map[string]int, len(prefixes))
	for i, p := range prefixes {
		rank[p] = i
	}
	out := make([]CliqueMember, len(members))
	copy(out, members)
	sort.SliceStable(out, func(a, b int) bool {
		ra, ok := rank[prefixOf(out[a].Identifier)]
		if !ok {
			ra = len(prefixes)
		}
		rb, ok := rank[prefixOf(out[b].Identifier)]
		if !ok {
			rb = len(prefixes)
		}
		return ra < rb
	})
	return out
}

func suspicious(label string) bool {
	return strings.TrimSpace(label) == "" || strings.HasPrefix(label, "CHEMBL")
}

// CandidateLabels returns the clique's label candidates, best first. The
// category list is most-specific-first; the most specific category with a
// boost entry controls the member ordering.
func (p *LabelPolicy) CandidateLabels(members []CliqueMember, categories []string) []string {
	var possible []string
	for _, category := range categories {
		prefixes, ok := p.BoostPrefixes[category]
		if !ok {
			continue
		}
		seen := map[string]bool{}
		for _, m := range sortByBoostedPrefixes(members, prefixes) {
			if !seen[m.Label] {
				seen[m.Label] = true
				possible = append(possible, m.Label)
			}
		}
		// Remaining labels keep their stored order at lower priority.
		for _, m := range members {
			if !seen[m.Label] {
				seen[m.Label] = true
				possible = append(possible, m.Label)
			}
		}
		break
	}
	if possible == nil {
		for _, m := range members {
			possible = append(possible, m.Label)
		}
	}

	filtered := possible[:0]
	for _, l := range possible {
		if !suspicious(l) {
			filtered = append(filtered, l)
		}
	}

	if p.DemoteLongerThan > 0 {
		short := make([]string, 0, len(filtered))
		for _, l := range filtered {
			if len(l) <= p.DemoteLongerThan {
				short = append(short, l)
			}
		}
		if len(short) > 0 {
			filtered = short
		}
	}
	return filtered
}

// PreferredLabel returns the head candidate, or "" when no label survives.
func (p *LabelPolicy) PreferredLabel(members []CliqueMember, categories []string) string {
	candidates := p.CandidateLabels(members, categories)
	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}
