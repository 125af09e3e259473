package achievements

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Definition is a static catalog entry.
type Definition struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Category    string    `yaml:"category" json:"category"`
	Icon        string    `yaml:"icon" json:"icon"`
	Criterion   Criterion `yaml:"criterion" json:"criterion"`
}

func (d Definition) Tier() Tier {
	return d.Criterion.Tier()
}

// Catalog is the read-only set of achievement definitions.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

type catalogFile struct {
	Achievements []Definition `yaml:"achievements"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Achievements)
}

// New builds a catalog from definitions, rejecting duplicates and invalid criteria.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(defs))}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("achievement %q has no id", d.Name)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate achievement id %q", d.ID)
		}
		if err := d.Criterion.Validate(); err != nil {
			return nil, fmt.Errorf("achievement %s: %w", d.ID, err)
		}
		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

var defaultCatalog = mustParse(defaultCatalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

func (c *Catalog) Size() int {
	return len(c.defs)
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// ByTier returns the definitions of one tier in catalog order.
func (c *Catalog) ByTier(t Tier) []Definition {
	var out []Definition
	for _, d := range c.defs {
		if d.Tier() == t {
			out = append(out, d)
		}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
