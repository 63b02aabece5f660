package fields

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Catalog is a read-only product snapshot (SKU -> display name) shared
// freely across concurrent runs.
type Catalog map[string]string

// Resolve looks up a SKU token case-insensitively.
func (c Catalog) Resolve(sku string) (string, bool) {
	if name, ok := c[sku]; ok {
		return name, true
	}
	name, ok := c[strings.ToUpper(sku)]
	return name, ok
}

// LoadCatalog reads a JSON object of SKU -> display name.
func LoadCatalog(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	normalized := make(Catalog, len(c))
	for sku, name := range c {
		normalized[strings.ToUpper(sku)] = name
	}
	return normalized, nil
}
