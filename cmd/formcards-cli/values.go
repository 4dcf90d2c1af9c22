package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// readValues loads the bound object. An empty path yields an empty object.
func readValues(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return decodeValues(data)
}

// decodeValues accepts JSON or YAML. YAML is a superset, but JSON is decoded
// with the JSON decoder so numbers keep float64 semantics.
func decodeValues(data []byte) (map[string]any, error) {
	values := map[string]any{}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return values, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode values: %w", err)
		}
		return values, nil
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}

// writeValues writes values in the format of the input file (YAML unless the
// target ends in .json).
func writeValues(output, input string, values map[string]any) error {
	target := output
	if target == "" {
		target = input
	}
	data, err := encodeValues(values, strings.EqualFold(filepath.Ext(target), ".json"))
	if err != nil {
		return err
	}
	return writeOutput(output, data)
}

func encodeValues(values map[string]any, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(values, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode values: %w", err)
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode values: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("written to %s\n", path)
	return nil
}
