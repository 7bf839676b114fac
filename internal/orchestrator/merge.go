package orchestrator

import (
	"fmt"
	"slices"
	"strings"
)

// SortSections returns sections ordered by order, whatever order they
// completed in. Duplicate titles, titles missing from sections and titles
// not in order are all errors.
func SortSections(sections []GeneratedSection, order []string) ([]GeneratedSection, error) {
	seen := make(map[string]int, len(sections))
	for _, sec := range sections {
		seen[sec.Title]++
	}
	var duplicates []string
	for name, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, fmt.Sprintf("%q (x%d)", name, count))
		}
	}
	if len(duplicates) > 0 {
		slices.Sort(duplicates)
		return nil, fmt.Errorf("sort sections: duplicate titles: %s", strings.Join(duplicates, ", "))
	}

	byTitle := make(map[string]GeneratedSection, len(sections))
	for _, sec := range sections {
		byTitle[sec.Title] = sec
	}

	var missing []string
	for _, title := range order {
		if _, ok := byTitle[title]; !ok {
			missing = append(missing, fmt.Sprintf("%q", title))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sort sections: missing titles: %s", strings.Join(missing, ", "))
	}

	if len(sections) != len(order) {
		planned := make(map[string]bool, len(order))
		for _, title := range order {
			planned[title] = true
		}
		var extra []string
		for _, sec := range sections {
			if !planned[sec.Title] {
				extra = append(extra, fmt.Sprintf("%q", sec.Title))
			}
		}
		return nil, fmt.Errorf("sort sections: unexpected titles: %s", strings.Join(extra, ", "))
	}

	ordered := make([]GeneratedSection, 0, len(order))
	for _, title := range order {
		ordered = append(ordered, byTitle[title])
	}
	return ordered, nil
}
