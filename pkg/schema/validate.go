package schema

import (
	"fmt"
	"strings"
)

// Issue codes reported by Validate.
const (
	IssueUnknownType       = "unknown_type"
	IssueGroupWithoutField = "group_without_fields"
	IssueArrayWithoutItem  = "array_without_item_schema"
	IssueDuplicateKey      = "duplicate_key"
	IssueMissingKey        = "missing_key"
	IssueGridCols          = "grid_cols_out_of_range"
	IssueDanglingVisible   = "dangling_visible_when_field"
	IssueDuplicateCard     = "duplicate_card"
	IssueDuplicateSection  = "duplicate_section"
)

// Issue describes one structural problem in a catalog. Issues never stop a
// catalog from being rendered; they explain why a field shows a diagnostic.
type Issue struct {
	Code    string `json:"code"`
	CardID  string `json:"cardId,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	location := i.CardID
	if i.Path != "" {
		location = joinPath(location, i.Path)
	}
	if location == "" {
		return i.Code + ": " + i.Message
	}
	return fmt.Sprintf("%s at %s: %s", i.Code, location, i.Message)
}

// Validate walks the catalog and collects structural issues.
func Validate(catalog Catalog) []Issue {
	var issues []Issue
	cards := make(map[string]struct{}, len(catalog))
	for _, card := range catalog {
		if _, dup := cards[card.CardID]; dup {
			issues = append(issues, Issue{Code: IssueDuplicateCard, CardID: card.CardID, Message: "card id is not unique within the catalog"})
		}
		cards[card.CardID] = struct{}{}
		issues = append(issues, validateCard(card)...)
	}
	return issues
}

func validateCard(card CardSchema) []Issue {
	v := &validator{cardID: card.CardID}

	// Top-level fields share the card's root scope across sections.
	var root []FieldDefinition
	sections := make(map[string]struct{}, len(card.Sections))
	for _, section := range card.Sections {
		if _, dup := sections[section.SectionID]; dup {
			v.add(IssueDuplicateSection, section.SectionID, "section id is not unique within the card")
		}
		sections[section.SectionID] = struct{}{}
		root = append(root, section.Fields...)
	}

	for _, section := range card.Sections {
		v.checkList(section.Fields, "", []scope{keysOf(root)})
	}
	return v.issues
}

type scope map[string]struct{}

func keysOf(fields []FieldDefinition) scope {
	out := make(scope, len(fields))
	for _, field := range fields {
		out[field.FieldKey] = struct{}{}
	}
	return out
}

type validator struct {
	cardID string
	issues []Issue
}

func (v *validator) add(code, path, message string) {
	v.issues = append(v.issues, Issue{Code: code, CardID: v.cardID, Path: path, Message: message})
}

func (v *validator) checkList(fields []FieldDefinition, prefix string, scopes []scope) {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		path := joinPath(prefix, field.FieldKey)
		if strings.TrimSpace(field.FieldKey) == "" {
			v.add(IssueMissingKey, prefix, "field has no fieldKey")
		} else if _, dup := seen[field.FieldKey]; dup {
			v.add(IssueDuplicateKey, path, "fieldKey is not unique within its scope")
		}
		seen[field.FieldKey] = struct{}{}
		v.checkField(field, path, scopes)
	}
}

func (v *validator) checkField(field FieldDefinition, path string, scopes []scope) {
	if !field.Type.Known() {
		v.add(IssueUnknownType, path, fmt.Sprintf("unknown field type %q", field.Type))
	}
	if field.GridCols != 0 && (field.GridCols < 1 || field.GridCols > 12) {
		v.add(IssueGridCols, path, fmt.Sprintf("gridCols %d outside 1-12", field.GridCols))
	}
	if ref := strings.TrimSpace(field.VisibleWhenField); ref != "" && !inScope(ref, scopes) {
		v.add(IssueDanglingVisible, path, fmt.Sprintf("visibleWhenField %q is not in scope", ref))
	}

	switch field.Type {
	case FieldTypeGroup:
		if len(field.Fields) == 0 {
			v.add(IssueGroupWithoutField, path, "GROUP requires nested fields")
			return
		}
		v.checkList(field.Fields, path, append([]scope{keysOf(field.Fields)}, scopes...))
	case FieldTypeArray:
		if field.ItemSchema == nil {
			v.add(IssueArrayWithoutItem, path, "ARRAY requires an itemSchema")
			return
		}
		item := *field.ItemSchema
		itemScopes := scopes
		if item.Type == FieldTypeGroup {
			itemScopes = append([]scope{keysOf(item.Fields)}, scopes...)
		}
		v.checkField(item, path+ItemPathSuffix, itemScopes)
	}
}

func inScope(ref string, scopes []scope) bool {
	head := ref
	if idx := strings.Index(ref, "."); idx >= 0 {
		head = ref[:idx]
	}
	for _, s := range scopes {
		if _, ok := s[ref]; ok {
			return true
		}
		if _, ok := s[head]; ok {
			return true
		}
	}
	return false
}
