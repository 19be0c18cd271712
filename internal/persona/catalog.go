// Package persona holds the creator personas whose knowledge is injected
// into advice prompts.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// Catalog is an ordered, read-only set of personas.
type Catalog struct {
	order []string
	byID  map[string]domain.Persona
}

// NewCatalog builds a catalog from personas in the given order. Later
// entries replace earlier ones with the same id.
func NewCatalog(personas ...domain.Persona) *Catalog {
	c := &Catalog{byID: make(map[string]domain.Persona, len(personas))}
	for _, p := range personas {
		if _, ok := c.byID[p.ID]; !ok {
			c.order = append(c.order, p.ID)
		}
		c.byID[p.ID] = p
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(builtin...)
}

type catalogFile struct {
	Personas []domain.Persona `yaml:"personas"`
}

// LoadFile extends the built-in catalog with personas from a YAML file.
// Entries whose id matches a built-in replace it.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}

	for i, p := range f.Personas {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("persona %d: id and name are required", i)
		}
	}

	return NewCatalog(append(append([]domain.Persona{}, builtin...), f.Personas...)...), nil
}

// Get returns the persona with the given id.
func (c *Catalog) Get(id string) (domain.Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Summary returns the knowledge summary of a persona, or "".
func (c *Catalog) Summary(id string) string {
	return c.byID[id].Summary
}

// List returns every persona in catalog order.
func (c *Catalog) List() []domain.Persona {
	out := make([]domain.Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of personas.
func (c *Catalog) Len() int {
	return len(c.order)
}
