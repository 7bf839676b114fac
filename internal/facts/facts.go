// Package facts provides read access to the structured fact mapping that
// grounds every generated memo. Facts are a two-level mapping of
// section name to field name to value and are never written by this module.
package facts

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Facts maps section name -> field name -> value.
type Facts map[string]map[string]any

// Lookup returns the raw value for section.field and whether the field is
// present at all. A present field may still hold an empty value.
func (f Facts) Lookup(section, field string) (any, bool) {
	sec, ok := f[section]
	if !ok {
		return nil, false
	}
	v, ok := sec[field]
	return v, ok
}

// Section returns the fields of one section, or nil.
func (f Facts) Section(name string) map[string]any {
	return f[name]
}

// IsEmpty reports whether v carries no usable value.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case []map[string]any:
		return len(t) == 0
	}
	return false
}

// Number converts a fact value to float64. Strings are accepted in either
// "1234.5" or pt-BR "1.234,5" form.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumber(t)
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimRight(s, "xX")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Float returns section.field as a number when it is present and numeric.
func (f Facts) Float(section, field string) (float64, bool) {
	v, ok := f.Lookup(section, field)
	if !ok || IsEmpty(v) {
		return 0, false
	}
	return Number(v)
}

// String returns section.field as a string when it is present and non-empty.
func (f Facts) String(section, field string) (string, bool) {
	v, ok := f.Lookup(section, field)
	if !ok || IsEmpty(v) {
		return "", false
	}
	return Stringify(v), true
}

// Stringify renders a fact value as plain text. Lists are comma-joined and
// records are rendered as "key: value" pairs separated by semicolons.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "sim"
		}
		return "não"
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := Stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return stringifyRecord(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func stringifyRecord(rec map[string]any) string {
	keys := sortedKeys(rec)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if IsEmpty(rec[k]) {
			continue
		}
		parts = append(parts, k+": "+Stringify(rec[k]))
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
