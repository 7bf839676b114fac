package retrieval

import (
	"strings"
)

// DefaultPassageChars is the target passage size used by SplitPassages.
const DefaultPassageChars = 800

// SplitPassages splits source text into passages for indexing. Paragraphs
// (blank-line separated) are packed together until adding the next one
// would exceed maxChars. A single paragraph longer than maxChars becomes its
// own passage. Wrapped lines inside a paragraph are joined with a space.
func SplitPassages(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultPassageChars
	}

	var (
		passages []string
		current  strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			passages = append(passages, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs(text) {
		if current.Len() > 0 && current.Len()+1+len(para) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(para)
	}
	flush()
	return passages
}

func paragraphs(text string) []string {
	var (
		out   []string
		lines []string
	)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(lines) > 0 {
				out = append(out, strings.Join(lines, " "))
				lines = lines[:0]
			}
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		out = append(out, strings.Join(lines, " "))
	}
	return out
}
