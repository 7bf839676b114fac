package validator

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// RedundantPair is two sections whose text is too similar.
type RedundantPair struct {
	SectionA   string  `json:"sectionA"`
	SectionB   string  `json:"sectionB"`
	Similarity float64 `json:"similarity"`
	Suggestion string  `json:"suggestion"`
}

func (p RedundantPair) String() string {
	return fmt.Sprintf("redundancy: %q and %q are %.0f%% similar; %s",
		p.SectionA, p.SectionB, p.Similarity*100, p.Suggestion)
}

// RedundancyReport is the outcome of the pairwise comparison.
type RedundancyReport struct {
	Pairs       []RedundantPair `json:"pairs,omitempty"`
	TotalChecks int             `json:"totalChecks"`
}

// Similarity returns the matching-blocks ratio of a and b, compared
// character by character after lowercasing. Identical inputs score 1.
func Similarity(a, b string) float64 {
	sa := strings.Split(strings.ToLower(a), "")
	sb := strings.Split(strings.ToLower(b), "")
	return difflib.NewMatcher(sa, sb).Ratio()
}

// CheckRedundancy compares every unordered pair of non-failed sections and
// reports those whose similarity exceeds threshold.
func CheckRedundancy(sections []Section, threshold float64) RedundancyReport {
	var live []Section
	for _, s := range sections {
		if !s.Failed {
			live = append(live, s)
		}
	}

	texts := make([]string, len(live))
	for i, s := range live {
		texts[i] = s.Text()
	}

	var rep RedundancyReport
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			rep.TotalChecks++
			ratio := Similarity(texts[i], texts[j])
			if ratio <= threshold {
				continue
			}
			rep.Pairs = append(rep.Pairs, RedundantPair{
				SectionA:   live[i].Title,
				SectionB:   live[j].Title,
				Similarity: ratio,
				Suggestion: fmt.Sprintf("narrow the scope of %q or %q so each covers distinct material", live[i].Title, live[j].Title),
			})
		}
	}
	return rep
}
