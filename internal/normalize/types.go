// Package normalize implements clique assembly: composing the keyed stores
// into normalized identifier records, with optional conflation overlays and
// prefix-priority label selection.
package normalize

import (
	"bytes"
	"encoding/json"
	"math"
)

// CliqueMember is the stored wire form of one clique member. The category is
// attached at read time from the owning clique's leaf category and never
// persisted.
type CliqueMember struct {
	Identifier   string   `json:"i"`
	Label        string   `json:"l,omitempty"`
	Descriptions []string `json:"d,omitempty"`

	category string
}

// Identifier is the preferred-identifier block of a normalized record.
type Identifier struct {
	Identifier  string `json:"identifier"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
}

// EquivalentIdentifier is one entry of a record's member list.
type EquivalentIdentifier struct {
	Identifier  string `json:"identifier"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
}

// CliqueRecord is the normalization answer for one input identifier.
type CliqueRecord struct {
	ID                    Identifier             `json:"id"`
	EquivalentIdentifiers []EquivalentIdentifier `json:"equivalent_identifiers"`
	Type                  []string               `json:"type"`
	InformationContent    *float64               `json:"information_content,omitempty"`
}

// RecordSet maps input identifiers to their records, preserving input order
// on serialization. Unresolvable inputs serialize as null.
type RecordSet struct {
	order   []string
	records map[string]*CliqueRecord
}

func NewRecordSet() *RecordSet {
	return &RecordSet{records: map[string]*CliqueRecord{}}
}

// Put records the answer for one input. First write wins for duplicates so
// input order is kept stable.
func (r *RecordSet) Put(curie string, rec *CliqueRecord) {
	if _, seen := r.records[curie]; !seen {
		r.order = append(r.order, curie)
	}
	r.records[curie] = rec
}

// Get returns the record for an input, nil when absent or unresolvable.
func (r *RecordSet) Get(curie string) *CliqueRecord { return r.records[curie] }

// Keys returns the inputs in arrival order.
func (r *RecordSet) Keys() []string { return r.order }

// Len returns the number of inputs answered.
func (r *RecordSet) Len() int { return len(r.order) }

func (r *RecordSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.records[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// roundIC keeps one decimal place, matching the stored precision contract.
func roundIC(v float64) float64 {
	return math.Round(v*10) / 10
}
