package trapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAttributesOrderInsensitive(t *testing.T) {
	a := Attribute{"attribute_type_id": "biolink:primary_knowledge_source", "value": "infores:ctd"}
	b := Attribute{"attribute_type_id": "biolink:aggregator_knowledge_source", "value": "infores:ara"}

	h1, ok := hashAttributes([]Attribute{a, b})
	require.True(t, ok)
	h2, ok := hashAttributes([]Attribute{b, a})
	require.True(t, ok)
	assert.Equal(t, h1, h2)
}

func TestHashAttributesDistinguishesValues(t *testing.T) {
	h1, ok := hashAttributes([]Attribute{{"attribute_type_id": "biolink:p_value", "value": 0.01}})
	require.True(t, ok)
	h2, ok := hashAttributes([]Attribute{{"attribute_type_id": "biolink:p_value", "value": 0.05}})
	require.True(t, ok)
	assert.NotEqual(t, h1, h2)
}

func TestHashAttributesEmptyListsAgree(t *testing.T) {
	h1, ok := hashAttributes(nil)
	require.True(t, ok)
	h2, ok := hashAttributes([]Attribute{})
	require.True(t, ok)
	assert.Equal(t, h1, h2)
}

func TestHashAttributesListValue(t *testing.T) {
	h1, ok := hashAttributes([]Attribute{
		{"attribute_type_id": "biolink:same_as", "value": []interface{}{"A:1", "B:2"}},
	})
	require.True(t, ok)
	h2, ok := hashAttributes([]Attribute{
		{"attribute_type_id": "biolink:same_as", "value": []interface{}{"B:2", "A:1"}},
	})
	require.True(t, ok)
	// List element order is significant, unlike attribute order.
	assert.NotEqual(t, h1, h2)
}

func TestHashAttributesFlatMapValue(t *testing.T) {
	_, ok := hashAttributes([]Attribute{
		{"attribute_type_id": "biolink:x", "value": map[string]interface{}{
			"k": "v", "list": []interface{}{"a", "b"},
		}},
	})
	assert.True(t, ok)
}

func TestHashAttributesNestedMapIsUnhashable(t *testing.T) {
	_, ok := hashAttributes([]Attribute{
		{"attribute_type_id": "biolink:x", "value": map[string]interface{}{
			"outer": map[string]interface{}{"inner": 1},
		}},
	})
	assert.False(t, ok)
}

func TestHashAttributesListOfMapsIsUnhashable(t *testing.T) {
	_, ok := hashAttributes([]Attribute{
		{"attribute_type_id": "biolink:x", "value": []interface{}{
			map[string]interface{}{"inner": 1},
		}},
	})
	assert.False(t, ok)
}
