package validator

import (
	"fmt"
	"strings"
)

// Totals aggregate counts over the whole document.
type Totals struct {
	Characters     int     `json:"characters"`
	Paragraphs     int     `json:"paragraphs"`
	EstimatedPages float64 `json:"estimatedPages"`
	Sections       int     `json:"sections"`
}

// Result is the full validation outcome. It is derived on every run and
// never merged across runs.
type Result struct {
	IsValid      bool             `json:"isValid"`
	Errors       []string         `json:"errors,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	Sections     []SectionStats   `json:"sections"`
	Totals       Totals           `json:"totals"`
	MissingFacts []MissingFact    `json:"missingFacts,omitempty"`
	Coherence    []CoherenceIssue `json:"coherence,omitempty"`
	Redundancy   RedundancyReport `json:"redundancy"`
	Threshold    float64          `json:"redundancyThreshold"`
}

// Format renders the result as a flat textual report.
func (r *Result) Format() string {
	var b strings.Builder

	b.WriteString("VALIDATION REPORT\n")
	b.WriteString(strings.Repeat("=", 60))
	b.WriteByte('\n')
	if r.IsValid {
		b.WriteString("Status: PASS\n")
	} else {
		b.WriteString("Status: FAIL\n")
	}

	b.WriteString("\nSections:\n")
	for _, s := range r.Sections {
		mark := "✓"
		if !s.Valid {
			mark = "✗"
		}
		fmt.Fprintf(&b, "  %s %s: %d paragraphs, %d characters\n", mark, s.Title, s.Paragraphs, s.Characters)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	fmt.Fprintf(&b, "\nRedundancy: %d of %d pairs above %.2f\n",
		len(r.Redundancy.Pairs), r.Redundancy.TotalChecks, r.Threshold)

	b.WriteString("\nTotals:\n")
	fmt.Fprintf(&b, "  Sections: %d\n", r.Totals.Sections)
	fmt.Fprintf(&b, "  Paragraphs: %d\n", r.Totals.Paragraphs)
	fmt.Fprintf(&b, "  Characters: %d\n", r.Totals.Characters)
	fmt.Fprintf(&b, "  Estimated pages: %.1f\n", r.Totals.EstimatedPages)
	return b.String()
}
