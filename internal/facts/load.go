package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile reads facts from a .json, .yaml, .yml or .toml file.
func LoadFile(path string) (Facts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts %s: %w", path, err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse facts %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes facts in the format named by ext (".json", ".yaml", ".yml",
// ".toml"). Numbers decoded from JSON are kept as json.Number.
func Parse(data []byte, ext string) (Facts, error) {
	raw := make(map[string]map[string]any)
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported facts format %q", ext)
	}

	f := make(Facts, len(raw))
	for section, fields := range raw {
		f[section] = normalizeFields(fields)
	}
	return f, nil
}

// normalizeFields converts decoder-specific containers into []any and
// map[string]any so callers see one shape regardless of source format.
func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case map[string]any:
		return normalizeFields(t)
	case []map[string]any:
		items := make([]any, len(t))
		for i, m := range t {
			items[i] = normalizeFields(m)
		}
		return items
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalizeValue(item)
		}
		return items
	}
	return v
}
