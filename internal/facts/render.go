package facts

import "strings"

// Label pairs a field with the human-readable label used in prompts.
type Label struct {
	Field string `yaml:"field" json:"field"`
	Label string `yaml:"label" json:"label"`
}

// RenderSection renders section as a "- label: value" list, omitting absent
// and empty fields. With no labels every field of the section is rendered
// under its own name, in sorted order. Returns "" when nothing renders.
func RenderSection(f Facts, section string, labels []Label) string {
	data := f.Section(section)
	if len(data) == 0 {
		return ""
	}
	if len(labels) == 0 {
		for _, k := range sortedKeys(data) {
			labels = append(labels, Label{Field: k})
		}
	}

	var b strings.Builder
	for _, l := range labels {
		v, ok := data[l.Field]
		if !ok || IsEmpty(v) {
			continue
		}
		name := l.Label
		if name == "" {
			name = l.Field
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(renderValue(v))
	}
	return b.String()
}

func renderValue(v any) string {
	items, ok := v.([]any)
	if !ok {
		return Stringify(v)
	}
	hasRecords := false
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			hasRecords = true
			break
		}
	}
	if !hasRecords {
		return Stringify(v)
	}
	var b strings.Builder
	for _, item := range items {
		s := Stringify(item)
		if s == "" {
			continue
		}
		b.WriteString("\n  - ")
		b.WriteString(s)
	}
	return b.String()
}
