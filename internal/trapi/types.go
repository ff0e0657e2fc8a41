// Package trapi implements message-level normalization: rewriting graph
// node references to canonical identifiers and merging the nodes, edges,
// bindings, and results that collapse under normalization.
package trapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is the TRAPI envelope. All three sections are optional.
type Message struct {
	QueryGraph     *QueryGraph     `json:"query_graph,omitempty"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledge_graph,omitempty"`
	Results        []Result        `json:"results,omitempty"`
}

// QueryGraph holds qnodes as open objects so unknown fields survive the
// rewrite untouched. Edges pass through verbatim.
type QueryGraph struct {
	Nodes map[string]map[string]interface{} `json:"nodes"`
	Edges map[string]json.RawMessage        `json:"edges,omitempty"`
}

// Node is a knowledge-graph node as an open object. Merging rewrites
// attribute keys, so attributes cannot be closed structs.
type Node map[string]interface{}

// Attribute is one entry of a node's or edge's attribute list.
type Attribute map[string]interface{}

// Edge is a knowledge-graph edge. Sources passes through verbatim.
type Edge struct {
	Subject    string          `json:"subject"`
	Predicate  string          `json:"predicate,omitempty"`
	Object     string          `json:"object"`
	Attributes []Attribute     `json:"attributes,omitempty"`
	Sources    json.RawMessage `json:"sources,omitempty"`
	Qualifiers json.RawMessage `json:"qualifiers,omitempty"`
}

// Binding is a node or edge binding as an open object.
type Binding map[string]interface{}

// Analysis is kept open; only its edge_bindings member is rewritten.
type Analysis map[string]interface{}

// Result pairs node bindings with analyses.
type Result struct {
	NodeBindings map[string][]Binding `json:"node_bindings"`
	Analyses     []Analysis           `json:"analyses,omitempty"`
}

// KnowledgeGraph preserves the document order of its nodes and edges.
// Merge semantics depend on encounter order, so plain Go maps are not
// enough.
type KnowledgeGraph struct {
	Nodes     map[string]Node
	NodeOrder []string
	Edges     map[string]*Edge
	EdgeOrder []string
}

func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		Nodes: map[string]Node{},
		Edges: map[string]*Edge{},
	}
}

// AddNode inserts or replaces a node, recording first-insertion order.
func (kg *KnowledgeGraph) AddNode(id string, node Node) {
	if _, ok := kg.Nodes[id]; !ok {
		kg.NodeOrder = append(kg.NodeOrder, id)
	}
	kg.Nodes[id] = node
}

// AddEdge inserts or replaces an edge, recording first-insertion order.
func (kg *KnowledgeGraph) AddEdge(key string, edge *Edge) {
	if _, ok := kg.Edges[key]; !ok {
		kg.EdgeOrder = append(kg.EdgeOrder, key)
	}
	kg.Edges[key] = edge
}

func (kg *KnowledgeGraph) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*kg = *NewKnowledgeGraph()

	if len(raw.Nodes) > 0 {
		if err := decodeOrdered(raw.Nodes, func(key string, dec *json.Decoder) error {
			var node Node
			if err := dec.Decode(&node); err != nil {
				return err
			}
			kg.AddNode(key, node)
			return nil
		}); err != nil {
			return fmt.Errorf("knowledge_graph nodes: %w", err)
		}
	}
	if len(raw.Edges) > 0 {
		if err := decodeOrdered(raw.Edges, func(key string, dec *json.Decoder) error {
			var edge Edge
			if err := dec.Decode(&edge); err != nil {
				return err
			}
			kg.AddEdge(key, &edge)
			return nil
		}); err != nil {
			return fmt.Errorf("knowledge_graph edges: %w", err)
		}
	}
	return nil
}

func (kg *KnowledgeGraph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"nodes":`)
	if err := writeOrdered(&buf, kg.NodeOrder, func(key string) (interface{}, bool) {
		v, ok := kg.Nodes[key]
		return v, ok
	}); err != nil {
		return nil, err
	}
	buf.WriteString(`,"edges":`)
	if err := writeOrdered(&buf, kg.EdgeOrder, func(key string) (interface{}, bool) {
		v, ok := kg.Edges[key]
		return v, ok
	}); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered walks one level of a JSON object, handing each value to the
// callback in document order.
func decodeOrdered(data []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		if err := fn(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

func writeOrdered(buf *bytes.Buffer, order []string, lookup func(key string) (interface{}, bool)) error {
	buf.WriteByte('{')
	first := true
	for _, key := range order {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return nil
}

func (a Attribute) stringField(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}
