package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/memoforge/internal/orchestrator"
)

// Markdown renders doc with title as the level-one heading and each section
// as a level-two heading followed by its paragraphs.
func Markdown(doc *orchestrator.Document, title string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	for _, s := range doc.Sections {
		b.WriteString(SectionMarkdown(s))
	}
	return b.String()
}

// SectionMarkdown renders one section.
func SectionMarkdown(s orchestrator.GeneratedSection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Title)
	for _, p := range s.Paragraphs {
		b.WriteString(strings.TrimSpace(p))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ReadMarkdown splits a memo rendered by Markdown back into sections. Text
// before the first "## " heading is ignored, and paragraphs are separated by
// blank lines.
func ReadMarkdown(r io.Reader) ([]orchestrator.GeneratedSection, error) {
	var (
		sections []orchestrator.GeneratedSection
		current  *orchestrator.GeneratedSection
		para     []string
	)
	flush := func() {
		if current != nil && len(para) > 0 {
			current.Paragraphs = append(current.Paragraphs, strings.Join(para, " "))
		}
		para = para[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if title, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			if current != nil {
				sections = append(sections, *current)
			}
			current = &orchestrator.GeneratedSection{Title: strings.TrimSpace(title)}
			continue
		}
		if current == nil {
			continue
		}
		if line == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	flush()
	if current != nil {
		sections = append(sections, *current)
	}
	return sections, nil
}
