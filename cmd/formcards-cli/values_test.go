package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcards/internal/testsupport"
)

func TestDecodeValuesJSONAndYAML(t *testing.T) {
	fromJSON, err := decodeValues([]byte(`{"name":"Ada","employees":42,"address":{"city":"London"}}`))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	fromYAML, err := decodeValues([]byte("name: Ada\nemployees: 42.0\naddress:\n  city: London\n"))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json and yaml decode differ (-json +yaml):\n%s", diff)
	}

	empty, err := decodeValues([]byte("  \n"))
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty values, got %v %v", empty, err)
	}
	if _, err := decodeValues([]byte("- a\n- b\n")); err == nil {
		t.Fatalf("expected error for a list document")
	}
}

func TestWriteValuesKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	values := map[string]any{"name": "Ada", "tags": []any{"a"}}

	jsonPath := filepath.Join(dir, "out.json")
	if err := writeValues(jsonPath, "", values); err != nil {
		t.Fatalf("write json: %v", err)
	}
	yamlPath := filepath.Join(dir, "out.yaml")
	if err := writeValues(yamlPath, "", values); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	for _, path := range []string{jsonPath, yamlPath} {
		got, err := readValues(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if diff := cmp.Diff(values, got); diff != "" {
			t.Fatalf("%s round trip (-want +got):\n%s", path, diff)
		}
	}
}

func TestRunValidateAndHTMLFromDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "contacts.json"), []byte(testsupport.ContactsCatalogJSON), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	enumsPath := filepath.Join(dir, "enums.yaml")
	fixture := "/enums/contact-status:\n  - {value: active, label: Active}\n"
	if err := os.WriteFile(enumsPath, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write enums: %v", err)
	}

	cfg := config{catalogDir: dir, enumsFile: enumsPath, catalogID: "contacts", locale: "en"}
	if err := run(t.Context(), cfg, "validate"); err != nil {
		t.Fatalf("validate: %v", err)
	}

	cfg.output = filepath.Join(dir, "page.html")
	if err := run(t.Context(), cfg, "html"); err != nil {
		t.Fatalf("html: %v", err)
	}
	page, err := os.ReadFile(cfg.output)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if len(page) == 0 {
		t.Fatalf("expected html output")
	}

	if err := run(t.Context(), cfg, "bogus"); err == nil {
		t.Fatalf("expected unknown command error")
	}
}
