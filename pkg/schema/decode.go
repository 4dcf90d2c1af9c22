package schema

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrEmptyPayload is returned when a catalog payload holds no bytes.
var ErrEmptyPayload = errors.New("schema: catalog payload is empty")

// DecodeCatalog parses a JSON array of cards, falling back to YAML so fixture
// catalogs can be authored by hand. Field type tags are normalised but never
// rejected; see Validate for structural checks.
func DecodeCatalog(data []byte) (Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPayload
	}

	var catalog Catalog
	jsonErr := json.Unmarshal(trimmed, &catalog)
	if jsonErr != nil {
		if trimmed[0] == '[' || trimmed[0] == '{' {
			return nil, fmt.Errorf("schema: decode catalog: %w", jsonErr)
		}
		catalog = nil
		if err := yaml.Unmarshal(trimmed, &catalog); err != nil {
			return nil, fmt.Errorf("schema: decode catalog: invalid JSON or YAML: %w", err)
		}
	}

	return normalizeCatalog(catalog), nil
}

// EncodeCatalog serialises the catalog as JSON.
func EncodeCatalog(catalog Catalog) ([]byte, error) {
	if catalog == nil {
		catalog = Catalog{}
	}
	return json.Marshal(catalog)
}

func normalizeCatalog(catalog Catalog) Catalog {
	if catalog == nil {
		return Catalog{}
	}
	for i := range catalog {
		for j := range catalog[i].Sections {
			catalog[i].Sections[j].Fields = normalizeFields(catalog[i].Sections[j].Fields)
		}
	}
	return catalog
}

func normalizeFields(fields []FieldDefinition) []FieldDefinition {
	for i := range fields {
		normalizeField(&fields[i])
	}
	return fields
}

func normalizeField(field *FieldDefinition) {
	field.Type = field.Type.Normalize()
	field.Fields = normalizeFields(field.Fields)
	if field.ItemSchema != nil {
		normalizeField(field.ItemSchema)
	}
}

// SortCards returns a copy of the catalog ordered by Order with CardID as the
// tie breaker.
func SortCards(catalog Catalog) Catalog {
	out := make(Catalog, len(catalog))
	copy(out, catalog)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].CardID < out[j].CardID
		}
		return out[i].Order < out[j].Order
	})
	return out
}
