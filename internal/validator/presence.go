package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/memoforge/internal/facts"
)

// MissingFact is a must-mention fact absent from the generated text.
type MissingFact struct {
	Ref      FactRef `json:"ref"`
	Expected string  `json:"expected"`
}

func (m MissingFact) String() string {
	where := "document"
	if m.Ref.Scope != "" {
		where = fmt.Sprintf("section %q", m.Ref.Scope)
	}
	return fmt.Sprintf("fact %s (%s) not found in %s", m.Ref.Key(), m.Expected, where)
}

// CheckFactPresence returns a warning for every ref whose fact is present in
// f but whose value does not appear in text. Absent facts are skipped.
func CheckFactPresence(f facts.Facts, text string, refs []FactRef) []string {
	var warnings []string
	for _, ref := range refs {
		if m, ok := missingFact(f, text, ref); ok {
			warnings = append(warnings, m.String())
		}
	}
	return warnings
}

func missingFact(f facts.Facts, text string, ref FactRef) (MissingFact, bool) {
	v, ok := f.Lookup(ref.Section, ref.Field)
	if !ok || facts.IsEmpty(v) {
		return MissingFact{}, false
	}
	lower := strings.ToLower(text)

	if n, isNum := numericValue(v); isNum {
		for _, c := range numberCandidates(n, ref.Format) {
			if strings.Contains(lower, c) {
				return MissingFact{}, false
			}
		}
		return MissingFact{Ref: ref, Expected: displayNumber(n, ref.Format)}, true
	}

	s := strings.TrimSpace(facts.Stringify(v))
	if strings.Contains(lower, strings.ToLower(s)) {
		return MissingFact{}, false
	}
	return MissingFact{Ref: ref, Expected: fmt.Sprintf("%q", s)}, true
}

// numericValue treats only typed numbers as numeric. Strings are matched
// literally even when they parse.
func numericValue(v any) (float64, bool) {
	if _, isString := v.(string); isString {
		return 0, false
	}
	return facts.Number(v)
}

// numberCandidates lists the renderings accepted for n: raw, pt-BR comma,
// one-decimal in both separators and thousands-grouped, each with the
// format's suffix.
func numberCandidates(n float64, format string) []string {
	raw := strconv.FormatFloat(n, 'f', -1, 64)
	oneDot := strconv.FormatFloat(n, 'f', 1, 64)
	bases := []string{
		raw,
		strings.ReplaceAll(raw, ".", ","),
		oneDot,
		strings.ReplaceAll(oneDot, ".", ","),
		facts.FormatNumber(n, -1),
		facts.FormatNumber(n, 1),
	}

	var suffixes []string
	switch format {
	case "percent":
		suffixes = []string{"%", " %"}
	case "multiple":
		suffixes = []string{"x", " x"}
	default:
		suffixes = []string{""}
	}

	seen := make(map[string]bool)
	var out []string
	for _, b := range bases {
		for _, s := range suffixes {
			c := b + s
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

func displayNumber(n float64, format string) string {
	switch format {
	case "percent":
		return facts.FormatPercent(n)
	case "multiple":
		return facts.FormatMultiple(n)
	default:
		return facts.FormatNumber(n, -1)
	}
}
