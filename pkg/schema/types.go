package schema

import "strings"

// FieldType is the closed tag set a FieldDefinition dispatches on.
type FieldType string

const (
	FieldTypeText        FieldType = "TEXT"
	FieldTypeTextarea    FieldType = "TEXTAREA"
	FieldTypeNumber      FieldType = "NUMBER"
	FieldTypeDecimal     FieldType = "DECIMAL"
	FieldTypeCurrency    FieldType = "CURRENCY"
	FieldTypeBoolean     FieldType = "BOOLEAN"
	FieldTypeEnum        FieldType = "ENUM"
	FieldTypeMultiselect FieldType = "MULTISELECT"
	FieldTypeDate        FieldType = "DATE"
	FieldTypeDatetime    FieldType = "DATETIME"
	FieldTypeEmail       FieldType = "EMAIL"
	FieldTypePhone       FieldType = "PHONE"
	FieldTypeURL         FieldType = "URL"
	FieldTypeLabel       FieldType = "LABEL"
	FieldTypeChip        FieldType = "CHIP"
	FieldTypeGroup       FieldType = "GROUP"
	FieldTypeArray       FieldType = "ARRAY"
)

var knownFieldTypes = map[FieldType]struct{}{
	FieldTypeText:        {},
	FieldTypeTextarea:    {},
	FieldTypeNumber:      {},
	FieldTypeDecimal:     {},
	FieldTypeCurrency:    {},
	FieldTypeBoolean:     {},
	FieldTypeEnum:        {},
	FieldTypeMultiselect: {},
	FieldTypeDate:        {},
	FieldTypeDatetime:    {},
	FieldTypeEmail:       {},
	FieldTypePhone:       {},
	FieldTypeURL:         {},
	FieldTypeLabel:       {},
	FieldTypeChip:        {},
	FieldTypeGroup:       {},
	FieldTypeArray:       {},
}

// Known reports whether t belongs to the closed tag set.
func (t FieldType) Known() bool {
	_, ok := knownFieldTypes[t]
	return ok
}

// HasOptions reports whether the type selects from an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeEnum || t == FieldTypeMultiselect
}

// Normalize upper-cases and trims a raw tag so "text " and "TEXT" agree.
func (t FieldType) Normalize() FieldType {
	return FieldType(strings.ToUpper(strings.TrimSpace(string(t))))
}

// EnumOption is a single selectable value with its display label.
type EnumOption struct {
	Value any    `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldDefinition describes one addressable field. Fields is only meaningful
// for GROUP and ItemSchema only for ARRAY.
type FieldDefinition struct {
	FieldKey    string    `json:"fieldKey" yaml:"fieldKey"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	ReadOnly    bool      `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	EnumSource  string    `json:"enumSource,omitempty" yaml:"enumSource,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText    string    `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	GridCols    int       `json:"gridCols,omitempty" yaml:"gridCols,omitempty"`

	Fields     []FieldDefinition `json:"fields,omitempty" yaml:"fields,omitempty"`
	ItemSchema *FieldDefinition  `json:"itemSchema,omitempty" yaml:"itemSchema,omitempty"`

	VisibleWhenField string `json:"visibleWhenField,omitempty" yaml:"visibleWhenField,omitempty"`
	VisibleWhenValue string `json:"visibleWhenValue,omitempty" yaml:"visibleWhenValue,omitempty"`
	// VisibleWhen is an optional boolean rule expression evaluated against the
	// field's scope in addition to the field/value pair.
	VisibleWhen string `json:"visibleWhen,omitempty" yaml:"visibleWhen,omitempty"`

	// Options carries static choices for ENUM/MULTISELECT; when present the
	// enum provider is never consulted.
	Options []EnumOption `json:"options,omitempty" yaml:"options,omitempty"`
	// Currency is the ISO 4217 code used by CURRENCY fields.
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`

	// Wizard placement metadata. The engine ignores these.
	Step         int    `json:"step,omitempty" yaml:"step,omitempty"`
	Order        int    `json:"order,omitempty" yaml:"order,omitempty"`
	SectionTitle string `json:"sectionTitle,omitempty" yaml:"sectionTitle,omitempty"`
}

// HasVisibilityRule reports whether the field declares any conditional
// visibility.
func (f FieldDefinition) HasVisibilityRule() bool {
	return strings.TrimSpace(f.VisibleWhenField) != "" || strings.TrimSpace(f.VisibleWhen) != ""
}

// DisplayLabel returns Label, falling back to a label derived from FieldKey.
func (f FieldDefinition) DisplayLabel() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	key := f.FieldKey
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		key = key[idx+1:]
	}
	return DefaultLabeler(key)
}

// CardSection is a named, optionally collapsible group of fields.
type CardSection struct {
	SectionID        string            `json:"sectionId" yaml:"sectionId"`
	Title            string            `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle         string            `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Fields           []FieldDefinition `json:"fields" yaml:"fields"`
	Collapsible      bool              `json:"collapsible,omitempty" yaml:"collapsible,omitempty"`
	DefaultCollapsed bool              `json:"defaultCollapsed,omitempty" yaml:"defaultCollapsed,omitempty"`
}

// CardSchema is the top-level displayable unit for one aspect of an entity.
type CardSchema struct {
	CardID           string        `json:"cardId" yaml:"cardId"`
	Title            string        `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle         string        `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Icon             string        `json:"icon,omitempty" yaml:"icon,omitempty"`
	Order            int           `json:"order" yaml:"order"`
	Sections         []CardSection `json:"sections" yaml:"sections"`
	DefaultCollapsed bool          `json:"defaultCollapsed,omitempty" yaml:"defaultCollapsed,omitempty"`
}

// Catalog is the ordered set of cards returned for one entity kind.
type Catalog []CardSchema
