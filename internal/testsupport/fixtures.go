package testsupport

import (
	"testing"

	"github.com/goliatone/go-formcards/pkg/schema"
)

// ContactsCatalogJSON is a compact contacts catalog exercising every field
// type, nested GROUP/ARRAY members and conditional visibility.
const ContactsCatalogJSON = `[
  {
    "cardId": "details",
    "title": "Contact Details",
    "icon": "<svg viewBox=\"0 0 24 24\"><path d=\"M0 0h24v24H0z\"/></svg>",
    "order": 1,
    "sections": [
      {
        "sectionId": "main",
        "title": "Main",
        "fields": [
          {"fieldKey": "name", "label": "Name", "type": "TEXT", "required": true, "gridCols": 6},
          {"fieldKey": "email", "label": "Email", "type": "EMAIL"},
          {"fieldKey": "status", "label": "Status", "type": "ENUM", "enumSource": "/enums/contact-status"},
          {"fieldKey": "vip", "label": "VIP", "type": "BOOLEAN"},
          {"fieldKey": "vipNote", "label": "VIP Note", "type": "TEXTAREA", "visibleWhenField": "vip", "visibleWhenValue": "true"}
        ]
      },
      {
        "sectionId": "address",
        "title": "Address",
        "collapsible": true,
        "defaultCollapsed": true,
        "fields": [
          {"fieldKey": "address", "label": "Address", "type": "GROUP", "fields": [
            {"fieldKey": "street", "label": "Street", "type": "TEXT"},
            {"fieldKey": "city", "label": "City", "type": "TEXT"}
          ]},
          {"fieldKey": "phones", "label": "Phones", "type": "ARRAY", "itemSchema":
            {"fieldKey": "phone", "label": "Phone", "type": "GROUP", "fields": [
              {"fieldKey": "kind", "label": "Kind", "type": "CHIP"},
              {"fieldKey": "number", "label": "Number", "type": "PHONE"}
            ]}
          }
        ]
      }
    ]
  },
  {
    "cardId": "commercial",
    "title": "Commercial",
    "order": 0,
    "sections": [
      {
        "sectionId": "money",
        "title": "Money",
        "fields": [
          {"fieldKey": "revenue", "label": "Revenue", "type": "CURRENCY", "currency": "EUR"},
          {"fieldKey": "employees", "label": "Employees", "type": "NUMBER"},
          {"fieldKey": "since", "label": "Customer since", "type": "DATE"},
          {"fieldKey": "tags", "label": "Tags", "type": "MULTISELECT", "options": [
            {"value": "a", "label": "Alpha"},
            {"value": "b", "label": "Beta"}
          ]}
        ]
      }
    ]
  }
]`

// ContactsCatalog decodes ContactsCatalogJSON.
func ContactsCatalog(t testing.TB) schema.Catalog {
	t.Helper()

	catalog, err := schema.DecodeCatalog([]byte(ContactsCatalogJSON))
	if err != nil {
		t.Fatalf("decode contacts catalog: %v", err)
	}
	return catalog
}

// ContactValues is a bound object matching ContactsCatalog.
func ContactValues() map[string]any {
	return map[string]any{
		"name":   "Ada Lovelace",
		"email":  "ada@example.com",
		"status": "active",
		"vip":    true,
		"address": map[string]any{
			"street": "1 Analytical Way",
			"city":   "London",
		},
		"phones": []any{
			map[string]any{"kind": "work", "number": "+44 20 1234"},
			map[string]any{"kind": "home", "number": "+44 20 5678"},
		},
		"revenue":   1234567.0,
		"employees": 42,
		"since":     "2021-03-04",
		"tags":      []any{"a"},
	}
}
