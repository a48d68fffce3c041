// Package template loads chart-of-accounts templates from YAML.
// The default catalog is embedded in the binary; a file on disk can replace it.
package template

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// entryFile is one account of a template in the YAML file
type entryFile struct {
	Number      string `yaml:"number"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Subtype     string `yaml:"subtype"`
	Parent      string `yaml:"parent"`
	Header      bool   `yaml:"header"`
	Bank        bool   `yaml:"bank"`
	Control     bool   `yaml:"control"`
}

// templateFile is one template in the YAML file
type templateFile struct {
	Name         string      `yaml:"name"`
	Jurisdiction string      `yaml:"jurisdiction"`
	Description  string      `yaml:"description"`
	Accounts     []entryFile `yaml:"accounts"`
}

type catalogFile struct {
	Templates []templateFile `yaml:"templates"`
}

// Catalog is an immutable set of chart templates keyed by (name, jurisdiction)
type Catalog struct {
	byKey map[string]*ledger.ChartTemplateDefinition
	list  []*ledger.ChartTemplateDefinition
}

// LoadDefault parses the embedded catalog
func LoadDefault() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, falling back to the embedded one when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog and validates every template in it
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]*ledger.ChartTemplateDefinition, len(file.Templates))}
	for _, t := range file.Templates {
		def := t.toDomain()
		if _, dup := c.byKey[def.Key()]; dup {
			return nil, fmt.Errorf("template %s/%s is defined twice", def.Name, def.Jurisdiction)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("template %s/%s: %w", def.Name, def.Jurisdiction, err)
		}
		c.byKey[def.Key()] = def
		c.list = append(c.list, def)
	}
	sort.Slice(c.list, func(i, j int) bool { return c.list[i].Key() < c.list[j].Key() })
	return c, nil
}

// Get returns the template for name and jurisdiction
func (c *Catalog) Get(name, jurisdiction string) (*ledger.ChartTemplateDefinition, error) {
	def, ok := c.byKey[ledger.TemplateKey(name, jurisdiction)]
	if !ok {
		return nil, shared.NewNotFoundError("TEMPLATE_NOT_FOUND",
			fmt.Sprintf("No chart template %q for jurisdiction %q", name, jurisdiction))
	}
	return def, nil
}

// List returns every template, ordered by key
func (c *Catalog) List() []*ledger.ChartTemplateDefinition {
	out := make([]*ledger.ChartTemplateDefinition, len(c.list))
	copy(out, c.list)
	return out
}

func (t templateFile) toDomain() *ledger.ChartTemplateDefinition {
	def := &ledger.ChartTemplateDefinition{
		Name:         t.Name,
		Jurisdiction: t.Jurisdiction,
		Description:  t.Description,
		Entries:      make([]ledger.ChartTemplateEntry, len(t.Accounts)),
	}
	for i, a := range t.Accounts {
		def.Entries[i] = ledger.ChartTemplateEntry{
			AccountNumber:       a.Number,
			Name:                a.Name,
			Description:         a.Description,
			AccountType:         ledger.AccountType(a.Type),
			AccountSubtype:      a.Subtype,
			ParentAccountNumber: a.Parent,
			IsHeader:            a.Header,
			IsBank:              a.Bank,
			IsControl:           a.Control,
		}
	}
	return def
}
