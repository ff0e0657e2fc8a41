package ingest_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biograph-io/nodenorm/internal/biolink"
	"github.com/biograph-io/nodenorm/internal/ingest"
	"github.com/biograph-io/nodenorm/internal/testutil"
)

func readJSONLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		out = append(out, record)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestConvertToKGX(t *testing.T) {
	schema, err := ingest.LoadSchema("")
	require.NoError(t, err)
	loader := ingest.NewLoader(&memSink{mem: testutil.NewMemStore()},
		biolink.Default(), schema, testutil.NewMockLogger())

	compendium := writeLines(t, "Disease.jsonl",
		`{"type":"biolink:Disease","identifiers":[{"i":"MONDO:0005002","l":"COPD"},{"i":"DOID:3083"},{"i":"UMLS:C0024117","l":"Chronic Obstructive Airway Disease"}]}`)

	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "export_nodes.jsonl")
	edgesPath := filepath.Join(dir, "export_edges.jsonl")
	require.NoError(t, loader.ConvertToKGX([]string{compendium}, nodesPath, edgesPath))

	nodes := readJSONLines(t, nodesPath)
	require.Len(t, nodes, 3)
	assert.Equal(t, "MONDO:0005002", nodes[0]["id"])
	assert.Equal(t, "COPD", nodes[0]["name"])
	assert.Equal(t, "biolink:Disease", nodes[0]["category"])
	assert.Equal(t,
		[]interface{}{"MONDO:0005002", "DOID:3083", "UMLS:C0024117"},
		nodes[0]["equivalent_identifiers"])
	assert.Equal(t, "", nodes[1]["name"], "members without labels export an empty name")

	// Three members pair up into three edges.
	edges := readJSONLines(t, edgesPath)
	require.Len(t, edges, 3)
	digest := regexp.MustCompile(`^[0-9a-f]{32}$`)
	for _, edge := range edges {
		assert.Equal(t, "biolink:same_as", edge["predicate"])
		assert.Regexp(t, digest, edge["id"])
	}
	assert.Equal(t, "MONDO:0005002", edges[0]["subject"])
	assert.Equal(t, "DOID:3083", edges[0]["object"])
	assert.Equal(t, "DOID:3083", edges[2]["subject"])
	assert.Equal(t, "UMLS:C0024117", edges[2]["object"])
}

func TestConvertToKGXRejectsInvalidInput(t *testing.T) {
	schema, err := ingest.LoadSchema("")
	require.NoError(t, err)
	loader := ingest.NewLoader(&memSink{mem: testutil.NewMemStore()},
		biolink.Default(), schema, testutil.NewMockLogger())

	compendium := writeLines(t, "bad.jsonl", `{"identifiers":[]}`)
	dir := t.TempDir()
	err = loader.ConvertToKGX([]string{compendium},
		filepath.Join(dir, "n.jsonl"), filepath.Join(dir, "e.jsonl"))
	assert.Error(t, err)
}
