// Package openapi derives card catalogs from OpenAPI component schemas.
//
// Component schemas opt in with an x-card extension (a card id string or an
// object with id, title, subtitle, icon, order, catalog, defaultCollapsed and
// sections). Properties map to fields by JSON schema type and format, and may
// override the result with x-field-type, x-enum-source, x-section, x-order,
// x-currency, x-placeholder, x-grid-cols, x-visible-when-field,
// x-visible-when-value and x-visible-when.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formcards/pkg/schema"
)

const (
	extCard             = "x-card"
	extSection          = "x-section"
	extOrder            = "x-order"
	extFieldType        = "x-field-type"
	extEnumSource       = "x-enum-source"
	extCurrency         = "x-currency"
	extPlaceholder      = "x-placeholder"
	extGridCols         = "x-grid-cols"
	extVisibleWhenField = "x-visible-when-field"
	extVisibleWhenValue = "x-visible-when-value"
	extVisibleWhen      = "x-visible-when"
	extEnumLabels       = "x-enum-labels"

	// DefaultSection holds properties without x-section.
	DefaultSection = "main"
	// DefaultCatalog groups cards whose x-card names no catalog.
	DefaultCatalog = "default"

	textareaThreshold = 255
)

// ErrNoCards is returned when no component schema carries x-card.
var ErrNoCards = errors.New("openapi: document declares no x-card schemas")

// Option configures an import.
type Option func(*importer)

type importer struct {
	validate    bool
	allSchemas  bool
	externalRef bool
}

// WithValidation validates the document before importing.
func WithValidation() Option {
	return func(i *importer) {
		i.validate = true
	}
}

// WithAllObjectSchemas imports every object component schema, using the
// schema name as card id when x-card is absent.
func WithAllObjectSchemas() Option {
	return func(i *importer) {
		i.allSchemas = true
	}
}

// WithExternalRefs allows $ref to other documents.
func WithExternalRefs() Option {
	return func(i *importer) {
		i.externalRef = true
	}
}

// ImportCatalogs loads an OpenAPI document and returns its cards grouped by
// catalog id, each catalog sorted by order then card id.
func ImportCatalogs(ctx context.Context, data []byte, options ...Option) (map[string]schema.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	imp := &importer{}
	for _, opt := range options {
		if opt != nil {
			opt(imp)
		}
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: imp.externalRef,
	}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if imp.validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, ErrNoCards
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	catalogs := make(map[string]schema.Catalog)
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		catalogID, card, ok := imp.card(name, ref.Value)
		if !ok {
			continue
		}
		catalogs[catalogID] = append(catalogs[catalogID], card)
	}
	if len(catalogs) == 0 {
		return nil, ErrNoCards
	}
	for id, catalog := range catalogs {
		catalogs[id] = schema.SortCards(catalog)
	}
	return catalogs, nil
}

// ImportCatalog is ImportCatalogs flattened into one catalog.
func ImportCatalog(ctx context.Context, data []byte, options ...Option) (schema.Catalog, error) {
	catalogs, err := ImportCatalogs(ctx, data, options...)
	if err != nil {
		return nil, err
	}
	var out schema.Catalog
	for _, catalog := range catalogs {
		out = append(out, catalog...)
	}
	return schema.SortCards(out), nil
}

// ImportFS reads path from files and imports it.
func ImportFS(ctx context.Context, files fs.FS, path string, options ...Option) (map[string]schema.Catalog, error) {
	data, err := fs.ReadFile(files, strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return ImportCatalogs(ctx, data, options...)
}

func (imp *importer) card(name string, src *openapi3.Schema) (string, schema.CardSchema, bool) {
	raw, declared := src.Extensions[extCard]
	if !declared && !(imp.allSchemas && typeOf(src) == "object") {
		return "", schema.CardSchema{}, false
	}

	card := schema.CardSchema{CardID: name, Title: src.Title}
	catalogID := DefaultCatalog
	var sectionMeta []any

	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			card.CardID = strings.TrimSpace(v)
		}
	case map[string]any:
		if id := stringExt(v["id"]); id != "" {
			card.CardID = id
		}
		if title := stringExt(v["title"]); title != "" {
			card.Title = title
		}
		card.Subtitle = stringExt(v["subtitle"])
		card.Icon = stringExt(v["icon"])
		card.Order, _ = intExt(v["order"])
		card.DefaultCollapsed, _ = v["defaultCollapsed"].(bool)
		if catalog := stringExt(v["catalog"]); catalog != "" {
			catalogID = catalog
		}
		sectionMeta, _ = v["sections"].([]any)
	}
	if card.Title == "" {
		card.Title = schema.DefaultLabeler(name)
	}
	if card.Subtitle == "" {
		card.Subtitle = src.Description
	}

	card.Sections = buildSections(src, sectionMeta)
	return catalogID, card, true
}

type orderedProperty struct {
	name  string
	order int
	ref   *openapi3.SchemaRef
}

func sortedProperties(src *openapi3.Schema) []orderedProperty {
	props := make([]orderedProperty, 0, len(src.Properties))
	for name, ref := range src.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		order, ok := intExt(ref.Value.Extensions[extOrder])
		if !ok {
			order = math.MaxInt32
		}
		props = append(props, orderedProperty{name: name, order: order, ref: ref})
	}
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].order == props[j].order {
			return props[i].name < props[j].name
		}
		return props[i].order < props[j].order
	})
	return props
}

func buildSections(src *openapi3.Schema, meta []any) []schema.CardSection {
	var sections []schema.CardSection
	index := make(map[string]int)

	// Declared sections keep their declared order, even when empty.
	for _, item := range meta {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringExt(m["id"])
		if id == "" {
			continue
		}
		section := schema.CardSection{
			SectionID: id,
			Title:     stringExt(m["title"]),
			Subtitle:  stringExt(m["subtitle"]),
			Fields:    []schema.FieldDefinition{},
		}
		section.Collapsible, _ = m["collapsible"].(bool)
		section.DefaultCollapsed, _ = m["defaultCollapsed"].(bool)
		if section.Title == "" {
			section.Title = schema.DefaultLabeler(id)
		}
		index[id] = len(sections)
		sections = append(sections, section)
	}

	required := requiredSet(src)
	for _, prop := range sortedProperties(src) {
		sectionID := stringExt(prop.ref.Value.Extensions[extSection])
		if sectionID == "" {
			sectionID = DefaultSection
		}
		pos, ok := index[sectionID]
		if !ok {
			pos = len(sections)
			index[sectionID] = pos
			sections = append(sections, schema.CardSection{
				SectionID: sectionID,
				Title:     schema.DefaultLabeler(sectionID),
				Fields:    []schema.FieldDefinition{},
			})
		}
		sections[pos].Fields = append(sections[pos].Fields, convertField(prop.name, prop.ref.Value, required[prop.name]))
	}
	return sections
}

func requiredSet(src *openapi3.Schema) map[string]bool {
	out := make(map[string]bool, len(src.Required))
	for _, name := range src.Required {
		out[name] = true
	}
	return out
}

func convertField(key string, src *openapi3.Schema, required bool) schema.FieldDefinition {
	field := schema.FieldDefinition{
		FieldKey:         key,
		Label:            src.Title,
		Required:         required,
		ReadOnly:         src.ReadOnly,
		HelpText:         src.Description,
		EnumSource:       stringExt(src.Extensions[extEnumSource]),
		Placeholder:      stringExt(src.Extensions[extPlaceholder]),
		Currency:         strings.ToUpper(stringExt(src.Extensions[extCurrency])),
		VisibleWhenField: stringExt(src.Extensions[extVisibleWhenField]),
		VisibleWhenValue: visibleValue(src.Extensions[extVisibleWhenValue]),
		VisibleWhen:      stringExt(src.Extensions[extVisibleWhen]),
	}
	if cols, ok := intExt(src.Extensions[extGridCols]); ok {
		field.GridCols = cols
	}
	if field.Label == "" {
		field.Label = schema.DefaultLabeler(key)
	}
	field.Options = enumOptions(src)
	field.Type = inferType(src, field)

	switch field.Type {
	case schema.FieldTypeGroup:
		nested := requiredSet(src)
		for _, prop := range sortedProperties(src) {
			field.Fields = append(field.Fields, convertField(prop.name, prop.ref.Value, nested[prop.name]))
		}
	case schema.FieldTypeArray:
		if src.Items != nil && src.Items.Value != nil {
			item := convertField("item", src.Items.Value, false)
			if src.Items.Value.Title == "" {
				item.Label = field.Label
			}
			field.ItemSchema = &item
		}
	case schema.FieldTypeMultiselect:
		if src.Items != nil && src.Items.Value != nil {
			items := src.Items.Value
			if field.EnumSource == "" {
				field.EnumSource = stringExt(items.Extensions[extEnumSource])
			}
			if len(field.Options) == 0 {
				field.Options = enumOptions(items)
			}
		}
	}
	return field
}

func inferType(src *openapi3.Schema, field schema.FieldDefinition) schema.FieldType {
	if override := schema.FieldType(stringExt(src.Extensions[extFieldType])).Normalize(); override != "" {
		return override
	}

	switch typeOf(src) {
	case "boolean":
		return schema.FieldTypeBoolean
	case "integer":
		if field.Currency != "" {
			return schema.FieldTypeCurrency
		}
		return schema.FieldTypeNumber
	case "number":
		if field.Currency != "" || strings.EqualFold(src.Format, "currency") {
			return schema.FieldTypeCurrency
		}
		return schema.FieldTypeDecimal
	case "object":
		return schema.FieldTypeGroup
	case "array":
		if items := src.Items; items != nil && items.Value != nil {
			if len(items.Value.Enum) > 0 || stringExt(items.Value.Extensions[extEnumSource]) != "" || field.EnumSource != "" {
				return schema.FieldTypeMultiselect
			}
		}
		return schema.FieldTypeArray
	}

	if field.EnumSource != "" || len(src.Enum) > 0 {
		return schema.FieldTypeEnum
	}
	switch strings.ToLower(src.Format) {
	case "email":
		return schema.FieldTypeEmail
	case "uri", "url":
		return schema.FieldTypeURL
	case "date":
		return schema.FieldTypeDate
	case "date-time":
		return schema.FieldTypeDatetime
	case "phone", "tel":
		return schema.FieldTypePhone
	case "textarea":
		return schema.FieldTypeTextarea
	}
	if src.MaxLength != nil && *src.MaxLength > textareaThreshold {
		return schema.FieldTypeTextarea
	}
	return schema.FieldTypeText
}

func typeOf(src *openapi3.Schema) string {
	if src.Type == nil {
		if len(src.Properties) > 0 {
			return "object"
		}
		return ""
	}
	for _, t := range src.Type.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

func enumOptions(src *openapi3.Schema) []schema.EnumOption {
	if len(src.Enum) == 0 {
		return nil
	}
	labels, _ := src.Extensions[extEnumLabels].(map[string]any)
	out := make([]schema.EnumOption, 0, len(src.Enum))
	for _, value := range src.Enum {
		if value == nil {
			continue
		}
		key := fmt.Sprint(value)
		label := stringExt(labels[key])
		if label == "" {
			label = schema.DefaultLabeler(key)
		}
		out = append(out, schema.EnumOption{Value: value, Label: label})
	}
	return out
}

func stringExt(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func visibleValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func intExt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}
