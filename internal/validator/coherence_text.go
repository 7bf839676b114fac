package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dusk-indust/memoforge/internal/facts"
)

// Tolerances for figures restated across the generated text.
const (
	navSpreadTolerance      = 1.1 // max/min ratio
	discountSpreadTolerance = 2.0 // percentage points
	maxTimelineSpan         = 6   // years
	timelineHorizon         = 11  // years after the reference year
)

var (
	navMention      = regexp.MustCompile(`(?i)\bNAV\s+(?:de\s+|reportado\s+|combinado\s+)?(?:de\s+)?R\$\s*(\d[\d.,]*)\s*(milh\S*|bilh\S*|MM|bi\b)?`)
	discountMention = regexp.MustCompile(`(?i)\bdesconto\s+(?:de\s+)?(\d+(?:,\d+)?)\s*%`)
	yearMention     = regexp.MustCompile(`\b(20\d{2})\b`)
	irrMention      = regexp.MustCompile(`(?i)\b(?:TIR|IRR)\s+(?:brut[ao]\s+|l[ií]quid[ao]\s+)?(?:de\s+)?(\d+(?:,\d+)?)\s*%`)
	moicMention     = regexp.MustCompile(`(?i)(?:\bMOIC|múltiplo)\s+(?:de\s+)?(\d+(?:,\d+)?)\s*x`)
	thousandsOnly   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
)

// textNumber parses a pt-BR figure as written in prose. "1.500" is read as
// fifteen hundred, not one and a half.
func textNumber(s string) (float64, bool) {
	s = strings.TrimRight(s, ".,")
	if thousandsOnly.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	return facts.Number(s)
}

// checkNAV flags NAV figures that drift across the memo.
func checkNAV(text string) []CoherenceIssue {
	var values []float64
	for _, m := range navMention.FindAllStringSubmatch(text, -1) {
		v, ok := textNumber(m[1])
		if !ok || v == 0 {
			continue
		}
		if unit := strings.ToLower(m[2]); strings.HasPrefix(unit, "bi") {
			v *= 1000
		}
		values = append(values, v)
	}
	if len(values) < 2 {
		return nil
	}
	low, high := slices.Min(values), slices.Max(values)
	if high/low <= navSpreadTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check:       CheckNAV,
		Description: fmt.Sprintf("NAV is stated as both %s and %s", facts.FormatMoney(low, ""), facts.FormatMoney(high, "")),
		Stated:      high,
		Derived:     low,
	}}
}

// checkDiscount flags a discount to NAV that changes between sections.
func checkDiscount(text string) []CoherenceIssue {
	var values []float64
	for _, m := range discountMention.FindAllStringSubmatch(text, -1) {
		if v, ok := textNumber(m[1]); ok {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil
	}
	low, high := slices.Min(values), slices.Max(values)
	if high-low <= discountSpreadTolerance {
		return nil
	}
	return []CoherenceIssue{{
		Check:       CheckDiscount,
		Description: fmt.Sprintf("discount to NAV is stated as both %s and %s", facts.FormatPercent(low), facts.FormatPercent(high)),
		Stated:      high,
		Derived:     low,
	}}
}

// checkTimeline flags forward-looking years spread too far apart to describe
// a single liquidity horizon.
func checkTimeline(in CoherenceInput) []CoherenceIssue {
	var years []int
	for _, m := range yearMention.FindAllStringSubmatch(in.Text, -1) {
		y, err := strconv.Atoi(m[1])
		if err != nil || y < in.Year || y > in.Year+timelineHorizon {
			continue
		}
		years = append(years, y)
	}
	if len(years) < 2 {
		return nil
	}
	first, last := slices.Min(years), slices.Max(years)
	if last-first <= maxTimelineSpan {
		return nil
	}
	return []CoherenceIssue{{
		Check:       CheckTimeline,
		Description: fmt.Sprintf("expected timeline spans %d to %d (%d years)", first, last, last-first),
		Stated:      float64(last - first),
		Derived:     maxTimelineSpan,
	}}
}

// checkReturnRange flags stated IRR and MOIC figures outside what a
// secondary deal plausibly returns.
func checkReturnRange(text string) []CoherenceIssue {
	var issues []CoherenceIssue
	for _, m := range irrMention.FindAllStringSubmatch(text, -1) {
		if v, ok := textNumber(m[1]); ok {
			issues = append(issues, outside(CheckReturnRange, "stated IRR", v, 8, 50, facts.FormatPercent)...)
		}
	}
	for _, m := range moicMention.FindAllStringSubmatch(text, -1) {
		if v, ok := textNumber(m[1]); ok {
			issues = append(issues, outside(CheckReturnRange, "stated MOIC", v, 1, 4, facts.FormatMultiple)...)
		}
	}
	return issues
}
