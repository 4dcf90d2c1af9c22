package schema

import "strings"

// ItemPathSuffix marks the element scope of an ARRAY field in walked paths,
// e.g. "contacts[]" or "contacts[].email".
const ItemPathSuffix = "[]"

// WalkFunc receives each field with its dotted path. Returning false stops
// the walk.
type WalkFunc func(path string, field FieldDefinition) bool

// Walk visits fields in pre-order, descending into GROUP.Fields and
// ARRAY.ItemSchema.
func Walk(fields []FieldDefinition, fn WalkFunc) {
	if fn == nil {
		return
	}
	walkFields(fields, "", fn)
}

func walkFields(fields []FieldDefinition, prefix string, fn WalkFunc) bool {
	for _, field := range fields {
		if !walkField(field, joinPath(prefix, field.FieldKey), fn) {
			return false
		}
	}
	return true
}

func walkField(field FieldDefinition, path string, fn WalkFunc) bool {
	if !fn(path, field) {
		return false
	}
	if len(field.Fields) > 0 {
		if !walkFields(field.Fields, path, fn) {
			return false
		}
	}
	if field.ItemSchema != nil {
		item := *field.ItemSchema
		itemPath := path + ItemPathSuffix
		if key := strings.TrimSpace(item.FieldKey); key != "" {
			itemPath = joinPath(itemPath, key)
		}
		if !walkField(item, itemPath, fn) {
			return false
		}
	}
	return true
}

// Flatten returns every field of the catalog in pre-order: cards in catalog
// order, then sections, then fields with their nested GROUP/ARRAY members.
func Flatten(catalog Catalog) []FieldDefinition {
	var out []FieldDefinition
	for _, card := range catalog {
		out = append(out, card.Flatten()...)
	}
	return out
}

// Flatten returns the card's fields in pre-order.
func (c CardSchema) Flatten() []FieldDefinition {
	var out []FieldDefinition
	for _, section := range c.Sections {
		Walk(section.Fields, func(_ string, field FieldDefinition) bool {
			out = append(out, field)
			return true
		})
	}
	return out
}

// FindCard returns the card with the given id.
func (c Catalog) FindCard(cardID string) (CardSchema, bool) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return CardSchema{}, false
	}
	for _, card := range c {
		if card.CardID == cardID {
			return card, true
		}
	}
	return CardSchema{}, false
}

// FindField locates a field by its dotted path (e.g. "address.city") or, when
// no path matches, by its bare fieldKey. The first match in pre-order wins.
func (c Catalog) FindField(fieldKey string) (FieldDefinition, bool) {
	fieldKey = strings.TrimSpace(fieldKey)
	if fieldKey == "" {
		return FieldDefinition{}, false
	}

	var (
		byKey    FieldDefinition
		keyFound bool
		byPath   FieldDefinition
		found    bool
	)
	for _, card := range c {
		for _, section := range card.Sections {
			Walk(section.Fields, func(path string, field FieldDefinition) bool {
				if path == fieldKey {
					byPath, found = field, true
					return false
				}
				if !keyFound && field.FieldKey == fieldKey {
					byKey, keyFound = field, true
				}
				return true
			})
			if found {
				return byPath, true
			}
		}
	}
	return byKey, keyFound
}

// Section returns the section with the given id.
func (c CardSchema) Section(sectionID string) (CardSection, bool) {
	for _, section := range c.Sections {
		if section.SectionID == sectionID {
			return section, true
		}
	}
	return CardSection{}, false
}

func joinPath(parent, child string) string {
	parent = strings.TrimSpace(parent)
	child = strings.TrimSpace(child)
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
