package orchestrator

import (
	"fmt"

	"github.com/dusk-indust/memoforge/internal/agent"
)

// SectionDef binds a section title to the generator that produces it and the
// retrieval query used to fetch its context.
type SectionDef struct {
	Title     string
	Generator agent.Generator

	// GeneratorName is the registry name, reported in section metadata.
	GeneratorName string

	Query string
}

// Definition is the immutable ordered section list of one document type. It
// fixes both generation order and the table of contents.
type Definition struct {
	name     string
	sections []SectionDef
	index    map[string]int
}

// NewDefinition validates and copies sections. Titles must be unique and
// every section needs a generator.
func NewDefinition(name string, sections []SectionDef) (*Definition, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("definition %q: no sections", name)
	}
	d := &Definition{
		name:     name,
		sections: make([]SectionDef, len(sections)),
		index:    make(map[string]int, len(sections)),
	}
	for i, s := range sections {
		if s.Title == "" {
			return nil, fmt.Errorf("definition %q: section %d has no title", name, i+1)
		}
		if _, dup := d.index[s.Title]; dup {
			return nil, fmt.Errorf("definition %q: duplicate section title %q", name, s.Title)
		}
		if s.Generator == nil {
			return nil, fmt.Errorf("definition %q: section %q has no generator", name, s.Title)
		}
		d.sections[i] = s
		d.index[s.Title] = i
	}
	return d, nil
}

// Name returns the document type the definition was built for.
func (d *Definition) Name() string {
	return d.name
}

// Len returns the number of sections.
func (d *Definition) Len() int {
	return len(d.sections)
}

// Sections returns a copy of the section list.
func (d *Definition) Sections() []SectionDef {
	out := make([]SectionDef, len(d.sections))
	copy(out, d.sections)
	return out
}

// Titles returns the section titles in order.
func (d *Definition) Titles() []string {
	titles := make([]string, len(d.sections))
	for i, s := range d.sections {
		titles[i] = s.Title
	}
	return titles
}

// Section returns the definition of title.
func (d *Definition) Section(title string) (SectionDef, bool) {
	i, ok := d.index[title]
	if !ok {
		return SectionDef{}, false
	}
	return d.sections[i], true
}

// Queries returns the title -> retrieval query map.
func (d *Definition) Queries() map[string]string {
	q := make(map[string]string, len(d.sections))
	for _, s := range d.sections {
		if s.Query != "" {
			q[s.Title] = s.Query
		}
	}
	return q
}
