package trapi

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/database/redis"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/internal/normalize"
)

// Normalizer rewrites messages onto canonical identifiers. It owns no state
// beyond its collaborators; every call is independent.
type Normalizer struct {
	resolver *normalize.Resolver
	store    redis.Store
	logger   logging.Logger
}

func NewNormalizer(resolver *normalize.Resolver, store redis.Store, log logging.Logger) *Normalizer {
	return &Normalizer{resolver: resolver, store: store, logger: log.Named("message")}
}

// NormalizeMessage produces a new message with canonical node identifiers,
// merged duplicate nodes, and deduplicated edges, bindings, and results.
// The input message is not modified. Only the conflation flags of opts are
// honored; descriptions never appear in message output.
func (n *Normalizer) NormalizeMessage(ctx context.Context, msg *Message, opts normalize.Options) (*Message, error) {
	opts.IncludeDescriptions = false
	opts.IncludeIndividualTypes = false

	out := &Message{}
	var nodeIDMap, edgeIDMap map[string]string

	if msg.QueryGraph != nil {
		qg, err := n.normalizeQueryGraph(ctx, msg.QueryGraph, opts)
		if err != nil {
			return nil, err
		}
		out.QueryGraph = qg
	}
	if msg.KnowledgeGraph != nil {
		kg, nm, em, err := n.normalizeKnowledgeGraph(ctx, msg.KnowledgeGraph, opts)
		if err != nil {
			return nil, err
		}
		out.KnowledgeGraph = kg
		nodeIDMap, edgeIDMap = nm, em
	}
	if msg.Results != nil {
		results, err := n.normalizeResults(ctx, msg.Results, nodeIDMap, edgeIDMap)
		if err != nil {
			return nil, err
		}
		out.Results = results
	}
	return out, nil
}

func (n *Normalizer) normalizeQueryGraph(ctx context.Context, qg *QueryGraph, opts normalize.Options) (*QueryGraph, error) {
	var allIDs []string
	for _, node := range qg.Nodes {
		allIDs = append(allIDs, qnodeIDs(node)...)
	}
	records, err := n.resolver.Normalize(ctx, allIDs, opts)
	if err != nil {
		return nil, err
	}

	out := &QueryGraph{
		Nodes: make(map[string]map[string]interface{}, len(qg.Nodes)),
		Edges: qg.Edges,
	}
	for code, node := range qg.Nodes {
		merged := make(map[string]interface{}, len(node))
		for k, v := range node {
			merged[k] = v
		}
		ids := qnodeIDs(node)
		if len(ids) > 0 {
			seen := map[string]bool{}
			primary := make([]string, 0, len(ids))
			for _, id := range ids {
				replacement := id
				if rec := records.Get(id); rec != nil {
					replacement = rec.ID.Identifier
				}
				if !seen[replacement] {
					seen[replacement] = true
					primary = append(primary, replacement)
				}
			}
			merged["ids"] = primary
		}
		out.Nodes[code] = merged
	}
	return out, nil
}

func qnodeIDs(node map[string]interface{}) []string {
	raw, ok := node["ids"].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (n *Normalizer) normalizeKnowledgeGraph(ctx context.Context, kg *KnowledgeGraph, opts normalize.Options) (*KnowledgeGraph, map[string]string, map[string]string, error) {
	records, err := n.resolver.Normalize(ctx, kg.NodeOrder, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	out := NewKnowledgeGraph()
	nodeIDMap := make(map[string]string, len(kg.NodeOrder))
	edgeIDMap := make(map[string]string, len(kg.EdgeOrder))
	mergeCount := map[string]int{}

	for _, id := range kg.NodeOrder {
		merged := copyNode(kg.Nodes[id])
		nodeIDMap[id] = id

		rec := records.Get(id)
		if rec == nil {
			out.AddNode(id, merged)
			continue
		}
		primary := rec.ID.Identifier
		nodeIDMap[id] = primary

		if existing, ok := out.Nodes[primary]; ok {
			mergeNodeAttributes(existing, merged, mergeCount[primary])
			mergeCount[primary]++
			continue
		}
		mergeCount[primary] = 0

		name := rec.ID.Label
		if name == "" {
			name, _ = merged["name"].(string)
		}
		merged["name"] = name

		equivalents := make([]interface{}, 0, len(rec.EquivalentIdentifiers))
		for _, eq := range rec.EquivalentIdentifiers {
			equivalents = append(equivalents, eq.Identifier)
		}
		appendAttribute(merged, Attribute{
			"attribute_type_id":       "biolink:same_as",
			"value":                   equivalents,
			"original_attribute_name": "equivalent_identifiers",
			"value_type_id":           "EDAM:data_0006",
		})
		merged["categories"] = rec.Type
		if rec.InformationContent != nil {
			appendAttribute(merged, icAttribute(*rec.InformationContent))
		}
		out.AddNode(primary, merged)
	}

	primaryEdges := map[string]string{}
	for _, key := range kg.EdgeOrder {
		edge := kg.Edges[key]
		subject := rewriteID(nodeIDMap, edge.Subject)
		object := rewriteID(nodeIDMap, edge.Object)

		attrDigest, hashable := hashAttributes(edge.Attributes)
		if !hashable {
			// Unhashable attributes: the edge can never deduplicate.
			attrDigest = uuid.NewString()
		}
		signature := strings.Join([]string{subject, edge.Predicate, object, attrDigest}, "\x1f")

		if first, ok := primaryEdges[signature]; ok {
			edgeIDMap[key] = first
			continue
		}
		primaryEdges[signature] = key
		edgeIDMap[key] = key

		out.AddEdge(key, &Edge{
			Subject:    subject,
			Predicate:  edge.Predicate,
			Object:     object,
			Attributes: edge.Attributes,
			Sources:    edge.Sources,
			Qualifiers: edge.Qualifiers,
		})
	}
	return out, nodeIDMap, edgeIDMap, nil
}

func (n *Normalizer) normalizeResults(ctx context.Context, results []Result, nodeIDMap, edgeIDMap map[string]string) ([]Result, error) {
	merged := make([]Result, 0, len(results))
	resultSeen := map[string]bool{}

	for _, result := range results {
		out := Result{NodeBindings: map[string][]Binding{}}
		bindingSeen := map[string]bool{}

		codes := make([]string, 0, len(result.NodeBindings))
		for code := range result.NodeBindings {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			kept := make([]Binding, 0, len(result.NodeBindings[code]))
			for _, binding := range result.NodeBindings[code] {
				rewritten, err := n.rewriteNodeBinding(ctx, binding, nodeIDMap)
				if err != nil {
					return nil, err
				}
				sig := nodeBindingSignature(rewritten)
				if bindingSeen[sig] {
					continue
				}
				bindingSeen[sig] = true
				kept = append(kept, rewritten)
			}
			out.NodeBindings[code] = kept
		}

		edgeBindingSeen := map[string]bool{}
		for _, analysis := range result.Analyses {
			out.Analyses = append(out.Analyses, rewriteAnalysis(analysis, edgeIDMap, edgeBindingSeen))
		}

		sig, err := canonicalJSON(out)
		if err != nil {
			n.logger.Error("Unserializable result, keeping without dedup", logging.Err(err))
			merged = append(merged, out)
			continue
		}
		if resultSeen[sig] {
			continue
		}
		resultSeen[sig] = true
		merged = append(merged, out)
	}
	return merged, nil
}

func (n *Normalizer) rewriteNodeBinding(ctx context.Context, binding Binding, nodeIDMap map[string]string) (Binding, error) {
	out := make(Binding, len(binding))
	for k, v := range binding {
		out[k] = v
	}
	if id, ok := out["id"].(string); ok {
		out["id"] = rewriteID(nodeIDMap, id)
	}

	if id, ok := out["id"].(string); ok {
		attr, err := n.infoContentAttribute(ctx, id)
		if err != nil {
			return nil, err
		}
		if attr != nil {
			existing, _ := out["attributes"].([]interface{})
			appended := make([]interface{}, 0, len(existing)+1)
			appended = append(appended, existing...)
			out["attributes"] = append(appended, map[string]interface{}(attr))
		}
	}
	return out, nil
}

// infoContentAttribute looks up the information content of a canonical id
// and shapes it as an attribute, nil when the store has no value.
func (n *Normalizer) infoContentAttribute(ctx context.Context, canonical string) (Attribute, error) {
	val, err := n.store.Get(ctx, config.StoreInfoContent, canonical)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, nil
	}
	ic, err := strconv.ParseFloat(*val, 64)
	if err != nil {
		n.logger.Warn("Malformed information content value",
			logging.String("canonical", canonical),
			logging.String("value", *val),
		)
		return nil, nil
	}
	return icAttribute(roundTo1(ic)), nil
}

func rewriteAnalysis(analysis Analysis, edgeIDMap map[string]string, seen map[string]bool) Analysis {
	out := make(Analysis, len(analysis))
	for k, v := range analysis {
		out[k] = v
	}
	bindings, ok := analysis["edge_bindings"].(map[string]interface{})
	if !ok {
		return out
	}

	newBindings := make(map[string]interface{}, len(bindings))
	codes := make([]string, 0, len(bindings))
	for code := range bindings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		list, ok := bindings[code].([]interface{})
		if !ok {
			newBindings[code] = bindings[code]
			continue
		}
		kept := make([]interface{}, 0, len(list))
		for _, raw := range list {
			binding, ok := raw.(map[string]interface{})
			if !ok {
				kept = append(kept, raw)
				continue
			}
			rewritten := make(map[string]interface{}, len(binding))
			for k, v := range binding {
				rewritten[k] = v
			}
			if id, ok := rewritten["id"].(string); ok {
				rewritten["id"] = rewriteID(edgeIDMap, id)
			}
			sig, err := canonicalJSON(rewritten)
			if err == nil {
				if seen[sig] {
					continue
				}
				seen[sig] = true
			}
			kept = append(kept, rewritten)
		}
		newBindings[code] = kept
	}
	out["edge_bindings"] = newBindings
	return out
}

// nodeBindingSignature identifies a binding for dedup. The attribute list
// contributes through its digest so attribute order does not matter;
// unhashable attributes make the binding unique.
func nodeBindingSignature(binding Binding) string {
	keys := make([]string, 0, len(binding))
	for k := range binding {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k == "attributes" {
			parts = append(parts, "atts")
			continue
		}
		enc, err := canonicalJSON(binding[k])
		if err != nil {
			enc = uuid.NewString()
		}
		parts = append(parts, k+"="+enc)
	}
	if raw, ok := binding["attributes"].([]interface{}); ok {
		attrs := make([]Attribute, 0, len(raw))
		hashable := true
		for _, v := range raw {
			m, ok := v.(map[string]interface{})
			if !ok {
				hashable = false
				break
			}
			attrs = append(attrs, Attribute(m))
		}
		digest := uuid.NewString()
		if hashable {
			if d, ok := hashAttributes(attrs); ok {
				digest = d
			}
		}
		parts = append(parts, "attrhash:"+digest)
	}
	return strings.Join(parts, "\x1f")
}

func rewriteID(idMap map[string]string, id string) string {
	if mapped, ok := idMap[id]; ok {
		return mapped
	}
	return id
}

func copyNode(node Node) Node {
	out := make(Node, len(node))
	for k, v := range node {
		out[k] = v
	}
	if attrs, ok := node["attributes"].([]interface{}); ok {
		copied := make([]interface{}, 0, len(attrs))
		for _, a := range attrs {
			if m, ok := a.(map[string]interface{}); ok {
				dup := make(map[string]interface{}, len(m))
				for k, v := range m {
					dup[k] = v
				}
				copied = append(copied, dup)
			} else {
				copied = append(copied, a)
			}
		}
		out["attributes"] = copied
	}
	return out
}

func appendAttribute(node Node, attr Attribute) {
	existing, _ := node["attributes"].([]interface{})
	node["attributes"] = append(existing, map[string]interface{}(attr))
}

// mergeNodeAttributes folds a duplicate node into the primary. The first
// merge re-keys the primary's own attributes with a ".1" suffix; merge n
// brings the incoming attributes in with ".{n+1}". Nothing is dropped.
func mergeNodeAttributes(primary, incoming Node, mergedCount int) {
	inAttrs, ok := incoming["attributes"].([]interface{})
	if !ok || len(inAttrs) == 0 {
		return
	}
	if mergedCount == 0 {
		if own, ok := primary["attributes"].([]interface{}); ok && len(own) > 0 {
			primary["attributes"] = suffixAttributeKeys(own, ".1")
		}
	}
	suffix := fmt.Sprintf(".%d", mergedCount+2)
	existing, _ := primary["attributes"].([]interface{})
	primary["attributes"] = append(existing, suffixAttributeKeys(inAttrs, suffix)...)
}

func suffixAttributeKeys(attrs []interface{}, suffix string) []interface{} {
	out := make([]interface{}, 0, len(attrs))
	for _, a := range attrs {
		m, ok := a.(map[string]interface{})
		if !ok {
			out = append(out, a)
			continue
		}
		rekeyed := make(map[string]interface{}, len(m))
		for k, v := range m {
			rekeyed[k+suffix] = v
		}
		out = append(out, rekeyed)
	}
	return out
}

func icAttribute(v float64) Attribute {
	return Attribute{
		"attribute_type_id":       "biolink:has_numeric_value",
		"original_attribute_name": "information_content",
		"value_type_id":           "EDAM:data_0006",
		"value":                   v,
	}
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
