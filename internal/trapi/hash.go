package trapi

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// emptyAttributeHash stands in for the hash of a missing or empty attribute
// list. All empty lists compare equal.
const emptyAttributeHash = "empty"

// hashAttributes reduces an attribute list to an order-insensitive digest.
// Returns ok=false when any attribute value is too deeply nested to compare
// structurally; callers must then treat the list as unique.
func hashAttributes(attrs []Attribute) (string, bool) {
	if len(attrs) == 0 {
		return emptyAttributeHash, true
	}
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		hv, ok := hashValue(a["value"])
		if !ok {
			return "", false
		}
		tuple := []string{
			a.stringField("attribute_type_id"),
			hv,
			a.stringField("original_attribute_name"),
			a.stringField("value_url"),
			a.stringField("attribute_source"),
			a.stringField("value_type_id"),
			a.stringField("attribute_source"),
		}
		parts = append(parts, strings.Join(tuple, "\x1f"))
	}
	// Set semantics: the digest ignores attribute order.
	sort.Strings(parts)

	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64()), true
}

// hashValue serializes an attribute value for hashing. Scalars, flat lists,
// and one-level mappings (with scalar or scalar-list values) are supported;
// anything deeper is unhashable.
func hashValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "~", true
	case string, bool, float64, int, int64, json.Number:
		return fmt.Sprintf("s(%v)", val), true
	case []interface{}:
		elems := make([]string, 0, len(val))
		for _, e := range val {
			s, ok := hashScalar(e)
			if !ok {
				return "", false
			}
			elems = append(elems, s)
		}
		return "l(" + strings.Join(elems, ",") + ")", true
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			switch inner := val[k].(type) {
			case []interface{}:
				elems := make([]string, 0, len(inner))
				for _, e := range inner {
					s, ok := hashScalar(e)
					if !ok {
						return "", false
					}
					elems = append(elems, s)
				}
				pairs = append(pairs, k+"=l("+strings.Join(elems, ",")+")")
			default:
				s, ok := hashScalar(inner)
				if !ok {
					return "", false
				}
				pairs = append(pairs, k+"="+s)
			}
		}
		return "m(" + strings.Join(pairs, ",") + ")", true
	default:
		return "", false
	}
}

func hashScalar(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "~", true
	case string, bool, float64, int, int64, json.Number:
		return fmt.Sprintf("s(%v)", val), true
	default:
		return "", false
	}
}

// canonicalJSON serializes with sorted object keys, giving a stable identity
// for dedup comparisons.
func canonicalJSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
