package openapi

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcards/pkg/schema"
	"github.com/goliatone/go-formcards/pkg/transport"
)

const contactsDocument = `
openapi: 3.0.3
info:
  title: Contacts
  version: "1.0"
paths: {}
components:
  schemas:
    Contact:
      type: object
      x-card:
        id: details
        title: Contact Details
        catalog: contacts
        order: 2
        icon: user
        sections:
          - id: main
            title: Main
          - id: address
            collapsible: true
            defaultCollapsed: true
      required: [name]
      properties:
        name:
          type: string
          title: Name
          x-order: 1
        email:
          type: string
          format: email
          x-order: 2
        status:
          type: string
          enum: [active, churned]
          x-enum-labels:
            churned: Lost
          x-order: 3
        owner:
          type: string
          x-enum-source: /enums/users
          x-order: 4
        vip:
          type: boolean
          x-order: 5
        vipNote:
          type: string
          maxLength: 2000
          x-order: 6
          x-visible-when-field: vip
          x-visible-when-value: true
        address:
          type: object
          x-section: address
          properties:
            street: {type: string, x-order: 1}
            city: {type: string, x-order: 2}
        phones:
          type: array
          x-section: address
          items:
            type: object
            properties:
              number: {type: string, format: phone}
        tags:
          type: array
          x-section: address
          items:
            type: string
            enum: [a, b]
    Commercial:
      type: object
      x-card:
        id: commercial
        catalog: contacts
        order: 1
      properties:
        revenue:
          type: number
          x-currency: eur
          readOnly: true
        employees:
          type: integer
        since:
          type: string
          format: date
        kind:
          type: string
          x-field-type: chip
    Unrelated:
      type: object
      properties:
        foo: {type: string}
`

func TestImportCatalogsGroupsAndOrdersCards(t *testing.T) {
	catalogs, err := ImportCatalogs(context.Background(), []byte(contactsDocument))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	contacts, ok := catalogs["contacts"]
	if !ok || len(catalogs) != 1 {
		t.Fatalf("expected a single contacts catalog, got %v", catalogs)
	}
	if len(contacts) != 2 || contacts[0].CardID != "commercial" || contacts[1].CardID != "details" {
		t.Fatalf("unexpected card order: %+v", contacts)
	}

	details := contacts[1]
	if details.Title != "Contact Details" || details.Icon != "user" {
		t.Fatalf("unexpected card metadata: %+v", details)
	}
	if len(details.Sections) != 2 {
		t.Fatalf("expected two sections, got %d", len(details.Sections))
	}
	if !details.Sections[1].Collapsible || !details.Sections[1].DefaultCollapsed || details.Sections[1].Title != "Address" {
		t.Fatalf("unexpected address section: %+v", details.Sections[1])
	}

	var keys []string
	var types []schema.FieldType
	for _, field := range details.Sections[0].Fields {
		keys = append(keys, field.FieldKey)
		types = append(types, field.Type)
	}
	if diff := cmp.Diff([]string{"name", "email", "status", "owner", "vip", "vipNote"}, keys); diff != "" {
		t.Fatalf("unexpected field order (-want +got):\n%s", diff)
	}
	wantTypes := []schema.FieldType{
		schema.FieldTypeText, schema.FieldTypeEmail, schema.FieldTypeEnum,
		schema.FieldTypeEnum, schema.FieldTypeBoolean, schema.FieldTypeTextarea,
	}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Fatalf("unexpected field types (-want +got):\n%s", diff)
	}

	fields := details.Sections[0].Fields
	if !fields[0].Required || fields[1].Required {
		t.Fatalf("expected only name required")
	}
	wantOptions := []schema.EnumOption{{Value: "active", Label: "Active"}, {Value: "churned", Label: "Lost"}}
	if diff := cmp.Diff(wantOptions, fields[2].Options); diff != "" {
		t.Fatalf("unexpected enum options (-want +got):\n%s", diff)
	}
	if fields[3].EnumSource != "/enums/users" || fields[3].Label != "Owner" {
		t.Fatalf("unexpected owner field: %+v", fields[3])
	}
	if fields[5].VisibleWhenField != "vip" || fields[5].VisibleWhenValue != "true" {
		t.Fatalf("unexpected visibility: %+v", fields[5])
	}
}

func TestImportNestedAndOverriddenTypes(t *testing.T) {
	catalog, err := ImportCatalog(context.Background(), []byte(contactsDocument))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	address, ok := catalog.FindField("address")
	if !ok || address.Type != schema.FieldTypeGroup || len(address.Fields) != 2 || address.Fields[1].FieldKey != "city" {
		t.Fatalf("unexpected address group: %+v", address)
	}
	phones, ok := catalog.FindField("phones")
	if !ok || phones.Type != schema.FieldTypeArray || phones.ItemSchema == nil {
		t.Fatalf("unexpected phones array: %+v", phones)
	}
	if phones.ItemSchema.Type != schema.FieldTypeGroup || phones.ItemSchema.Fields[0].Type != schema.FieldTypePhone {
		t.Fatalf("unexpected phones item schema: %+v", phones.ItemSchema)
	}
	tags, ok := catalog.FindField("tags")
	if !ok || tags.Type != schema.FieldTypeMultiselect || len(tags.Options) != 2 {
		t.Fatalf("unexpected tags field: %+v", tags)
	}

	revenue, _ := catalog.FindField("revenue")
	if revenue.Type != schema.FieldTypeCurrency || revenue.Currency != "EUR" || !revenue.ReadOnly {
		t.Fatalf("unexpected revenue field: %+v", revenue)
	}
	employees, _ := catalog.FindField("employees")
	since, _ := catalog.FindField("since")
	kind, _ := catalog.FindField("kind")
	if employees.Type != schema.FieldTypeNumber || since.Type != schema.FieldTypeDate || kind.Type != schema.FieldTypeChip {
		t.Fatalf("unexpected scalar types: %s %s %s", employees.Type, since.Type, kind.Type)
	}

	if issues := schema.Validate(catalog); len(issues) != 0 {
		t.Fatalf("expected imported catalog to validate, got %v", issues)
	}
}

func TestImportAllObjectSchemas(t *testing.T) {
	catalogs, err := ImportCatalogs(context.Background(), []byte(contactsDocument), WithAllObjectSchemas())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	fallback := catalogs[DefaultCatalog]
	if len(fallback) != 1 || fallback[0].CardID != "Unrelated" || fallback[0].Sections[0].SectionID != DefaultSection {
		t.Fatalf("unexpected fallback catalog: %+v", fallback)
	}
}

func TestImportWithoutCards(t *testing.T) {
	doc := "openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n"
	if _, err := ImportCatalogs(context.Background(), []byte(doc)); !errors.Is(err, ErrNoCards) {
		t.Fatalf("expected ErrNoCards, got %v", err)
	}
	if _, err := ImportCatalogs(context.Background(), []byte("{not yaml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestFetcherServesImportedCatalogs(t *testing.T) {
	files := fstest.MapFS{"api/contacts.yaml": {Data: []byte(contactsDocument)}}
	catalogs, err := ImportFS(context.Background(), files, "/api/contacts.yaml")
	if err != nil {
		t.Fatalf("import fs: %v", err)
	}

	store := transport.NewStore(NewFetcher(catalogs))
	catalog, err := store.Catalog(context.Background(), "contacts")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected two cards, got %d", len(catalog))
	}

	_, err = store.Catalog(context.Background(), "leads")
	if !transport.IsNotFound(err) || !errors.Is(err, transport.ErrUnknownCatalog) {
		t.Fatalf("expected not found, got %v", err)
	}
}
