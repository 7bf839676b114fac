package validator

import (
	"fmt"
	"unicode/utf8"
)

// SectionStats are the per-section counts and structural findings.
type SectionStats struct {
	Title      string   `json:"title"`
	Paragraphs int      `json:"paragraphs"`
	Characters int      `json:"characters"`
	Valid      bool     `json:"valid"`
	Problems   []string `json:"problems,omitempty"`
}

// checkStructure verifies the paragraph count against band and that every
// paragraph reaches minChars. A zero band skips the count check.
func checkStructure(sec Section, band Band, minChars int) SectionStats {
	stats := SectionStats{Title: sec.Title, Valid: true}

	n := 0
	for _, p := range sec.Paragraphs {
		c := utf8.RuneCountInString(p)
		stats.Characters += c
		if c > 0 {
			n++
		}
	}
	stats.Paragraphs = n

	if band != (Band{}) && !band.Contains(n) {
		stats.Valid = false
		if n < band.Min {
			stats.Problems = append(stats.Problems, fmt.Sprintf(
				"section %q too short: %d paragraphs (minimum %d)", sec.Title, n, band.Min))
		} else {
			stats.Problems = append(stats.Problems, fmt.Sprintf(
				"section %q too long: %d paragraphs (maximum %d)", sec.Title, n, band.Max))
		}
	}

	if minChars > 0 {
		for i, p := range sec.Paragraphs {
			if c := utf8.RuneCountInString(p); c > 0 && c < minChars {
				stats.Valid = false
				stats.Problems = append(stats.Problems, fmt.Sprintf(
					"section %q paragraph %d too short: %d characters (minimum %d)", sec.Title, i+1, c, minChars))
			}
		}
	}
	return stats
}
