// Package biolink answers category-hierarchy questions for the normalizer.
// The class tree is embedded at build time; no network lookups at runtime.
package biolink

import (
	_ "embed"
	"encoding/json"
	"sync"

	"golang.org/x/sync/singleflight"
)

//go:embed classes.json
var classesJSON []byte

const (
	ClassEntity     = "biolink:Entity"
	ClassNamedThing = "biolink:NamedThing"
	ClassGene       = "biolink:Gene"
	ClassProtein    = "biolink:Protein"
	ClassDrug       = "biolink:Drug"
)

// Toolkit resolves a category to its ancestor chain. Lookups are memoized;
// concurrent first lookups for the same category collapse into one walk.
type Toolkit struct {
	parents map[string]string

	cache sync.Map
	group singleflight.Group
}

var (
	defaultToolkit *Toolkit
	toolkitOnce    sync.Once
)

// Default returns the process-wide toolkit built from the embedded class tree.
func Default() *Toolkit {
	toolkitOnce.Do(func() {
		defaultToolkit = mustNewToolkit()
	})
	return defaultToolkit
}

func mustNewToolkit() *Toolkit {
	parents := map[string]string{}
	if err := json.Unmarshal(classesJSON, &parents); err != nil {
		panic("biolink: embedded class tree is invalid: " + err.Error())
	}
	return &Toolkit{parents: parents}
}

// Known reports whether the category appears in the class tree.
func (t *Toolkit) Known(category string) bool {
	if category == ClassEntity {
		return true
	}
	_, ok := t.parents[category]
	return ok
}

// Ancestors returns the category followed by its ancestors up to and
// including biolink:Entity. A category outside the class tree is treated as a
// direct child of biolink:NamedThing.
func (t *Toolkit) Ancestors(category string) []string {
	if cached, ok := t.cache.Load(category); ok {
		return cached.([]string)
	}
	chain, _, _ := t.group.Do(category, func() (interface{}, error) {
		out := t.walk(category)
		t.cache.Store(category, out)
		return out, nil
	})
	return chain.([]string)
}

func (t *Toolkit) walk(category string) []string {
	out := []string{category}
	seen := map[string]bool{category: true}
	cur := category
	for cur != ClassEntity {
		parent, ok := t.parents[cur]
		if !ok {
			parent = ClassNamedThing
			if seen[parent] {
				parent = ClassEntity
			}
		}
		if seen[parent] {
			break
		}
		out = append(out, parent)
		seen[parent] = true
		cur = parent
	}
	return out
}

// Expand returns the union of the ancestor chains of the seed categories.
// Seeds come first in their given order, then ancestors in discovery order,
// with biolink:Entity removed throughout.
func (t *Toolkit) Expand(seeds []string) []string {
	seen := make(map[string]bool, len(seeds))
	out := make([]string, 0, len(seeds)*3)
	for _, s := range seeds {
		if s == "" || s == ClassEntity || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range seeds {
		for _, anc := range t.Ancestors(s) {
			if anc == ClassEntity || seen[anc] {
				continue
			}
			seen[anc] = true
			out = append(out, anc)
		}
	}
	return out
}
