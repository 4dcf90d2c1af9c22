package enumoptions

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcards/pkg/schema"
)

// LoadSources decodes a fixture document mapping source names to option
// lists. YAML and JSON are both accepted:
//
//	/enums/contact-status:
//	  - {value: active, label: Active}
//	  - {value: churned, label: Churned}
//
// Entries without a value are dropped and a missing label falls back to the
// value's text.
func LoadSources(data []byte) (map[string][]schema.EnumOption, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("enumoptions: decode sources: %w", err)
	}
	out := make(map[string][]schema.EnumOption, len(raw))
	for source, items := range raw {
		if strings.TrimSpace(source) == "" {
			return nil, fmt.Errorf("enumoptions: empty source name")
		}
		options := make([]schema.EnumOption, 0, len(items))
		for _, item := range items {
			value, ok := item["value"]
			if !ok || value == nil {
				continue
			}
			label, _ := item["label"].(string)
			if label == "" {
				label = fmt.Sprint(value)
			}
			options = append(options, schema.EnumOption{Value: value, Label: label})
		}
		out[source] = options
	}
	return out, nil
}

// LoadSourcesFS reads LoadSources input from fsys.
func LoadSourcesFS(fsys fs.FS, path string) (map[string][]schema.EnumOption, error) {
	data, err := fs.ReadFile(fsys, strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("enumoptions: read %s: %w", path, err)
	}
	return LoadSources(data)
}

func sortedKeys(sources map[string][]schema.EnumOption) []string {
	keys := make([]string, 0, len(sources))
	for key := range sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
