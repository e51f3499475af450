package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Supported document formats for record and report input and output.
const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(s); f {
	case formatJSON, formatYAML:
		return f, nil
	case "yml":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want %s or %s)", s, formatJSON, formatYAML)
}

// decodeDocument reads one JSON or YAML document. JSON numbers are kept as
// json.Number so they are written back exactly as read.
func decodeDocument(r io.Reader, format string) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var doc any
	switch format {
	case formatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		doc = stringKeys(doc)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	return doc, nil
}

// stringKeys rewrites every map[any]any, which yaml produces for mappings
// with non-string keys, into map[string]any so the walks see every object.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = stringKeys(item)
		}
		return out
	case map[string]any:
		for k, item := range val {
			val[k] = stringKeys(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = stringKeys(item)
		}
		return val
	}
	return v
}

// encodeDocument writes doc in the given format.
func encodeDocument(w io.Writer, format string, doc any) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write YAML: %w", err)
		}
		return enc.Close()
	}
	return printJSON(w, doc)
}

// asObjects accepts a single object or a list of objects.
func asObjects(doc any) (objs []map[string]any, single bool, err error) {
	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, true, nil
	case []any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("item %d is not an object", i)
			}
			out[i] = m
		}
		return out, false, nil
	}
	return nil, false, fmt.Errorf("input must be an object or a list of objects")
}

// asObject accepts a single object.
func asObject(doc any) (map[string]any, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("input must be an object")
	}
	return m, nil
}
