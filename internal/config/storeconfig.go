package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Logical store names. The topology file must map every one of these to a
// descriptor; ingestion and serving look stores up by these names.
const (
	StoreEqToCanon      = "eq_id_to_id_db"
	StoreCanonMembers   = "id_to_eqids_db"
	StoreCanonCategory  = "id_to_type_db"
	StorePrefixCounts   = "curie_to_bl_type_db"
	StoreInfoContent    = "info_content_db"
	StoreGeneProtein    = "gene_protein_db"
	StoreChemicalDrug   = "chemical_drug_db"
)

// StoreNames lists every logical store, in stable order.
var StoreNames = []string{
	StoreEqToCanon,
	StoreCanonMembers,
	StoreCanonCategory,
	StorePrefixCounts,
	StoreInfoContent,
	StoreGeneProtein,
	StoreChemicalDrug,
}

// HostPort is one node of a clustered store.
type HostPort struct {
	HostName string `yaml:"host_name"`
	Port     string `yaml:"port"`
}

// StoreDescriptor describes the connection to one logical store: either a
// standalone instance (Host, DB) or a cluster (Hosts).
type StoreDescriptor struct {
	IsCluster  bool       `yaml:"is_cluster"`
	Hosts      []HostPort `yaml:"hosts"`
	Host       *HostPort  `yaml:"host"`
	DB         int        `yaml:"db"`
	Password   string     `yaml:"password"`
	SSLEnabled bool       `yaml:"ssl_enabled"`
}

// StoreTopology maps each logical store name to its descriptor.
type StoreTopology map[string]StoreDescriptor

// LoadStoreTopology parses the store-topology YAML at path and verifies that
// it covers exactly the known store names. Unknown names are a configuration
// error: they would otherwise hide typos until the first failed lookup.
func LoadStoreTopology(path string) (StoreTopology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read store topology %q: %w", path, err)
	}

	topo := StoreTopology{}
	if err := yaml.Unmarshal(raw, &topo); err != nil {
		return nil, fmt.Errorf("config: failed to parse store topology %q: %w", path, err)
	}

	known := map[string]bool{}
	for _, name := range StoreNames {
		known[name] = true
	}
	for name := range topo {
		if !known[name] {
			return nil, fmt.Errorf("config: store topology references unknown store %q", name)
		}
	}
	for _, name := range StoreNames {
		desc, ok := topo[name]
		if !ok {
			return nil, fmt.Errorf("config: store topology missing store %q", name)
		}
		if desc.IsCluster && len(desc.Hosts) == 0 {
			return nil, fmt.Errorf("config: cluster store %q has no hosts", name)
		}
		if !desc.IsCluster && desc.Host == nil {
			return nil, fmt.Errorf("config: standalone store %q has no host", name)
		}
	}
	return topo, nil
}

// Override rewrites the host and port of every standalone descriptor.
// Cluster descriptors are left untouched: a single host/port pair cannot
// describe a cluster.
func (t StoreTopology) Override(host, port string) {
	if host == "" && port == "" {
		return
	}
	for name, desc := range t {
		if desc.IsCluster || desc.Host == nil {
			continue
		}
		h := *desc.Host
		if host != "" {
			h.HostName = host
		}
		if port != "" {
			h.Port = port
		}
		desc.Host = &h
		t[name] = desc
	}
}
