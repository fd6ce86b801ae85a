// Package taxonomy holds the fixed category tree assets are filed under.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var embedded []byte

type Category struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description" json:"description"`
	Subcategories []string `yaml:"subcategories" json:"subcategories"`
}

type Taxonomy struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Parse decodes and checks a taxonomy document. Names must be non-empty
// and unique within their level.
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if len(t.Categories) == 0 {
		return nil, errors.New("taxonomy has no categories")
	}

	seen := make(map[string]struct{}, len(t.Categories))
	for i, c := range t.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = struct{}{}
		if len(c.Subcategories) == 0 {
			return nil, fmt.Errorf("category %q has no subcategories", name)
		}

		subs := make(map[string]struct{}, len(c.Subcategories))
		for _, s := range c.Subcategories {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, fmt.Errorf("category %q has an empty subcategory", name)
			}
			if _, dup := subs[s]; dup {
				return nil, fmt.Errorf("duplicate subcategory %q in %q", s, name)
			}
			subs[s] = struct{}{}
		}
	}
	return &t, nil
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the taxonomy compiled into the binary.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("embedded taxonomy: %v", err))
		}
		defaultTax = t
	})
	return defaultTax
}

func (t *Taxonomy) Main(name string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

func (t *Taxonomy) MainNames() []string {
	names := make([]string, 0, len(t.Categories))
	for _, c := range t.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Valid reports whether sub is filed under main.
func (t *Taxonomy) Valid(main, sub string) bool {
	c, ok := t.Main(main)
	if !ok {
		return false
	}
	for _, s := range c.Subcategories {
		if s == sub {
			return true
		}
	}
	return false
}
