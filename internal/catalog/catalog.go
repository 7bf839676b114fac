// Package catalog holds the document types memoforge can generate. Each type
// is a YAML definition embedded in the binary: its ordered sections, the
// retrieval query and role prompt of each section, the fact blocks the
// section sees, and the validation rules for the finished document.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/validator"
	"gopkg.in/yaml.v3"
)

// DefinitionsFS contains the built-in document types.
//
//go:embed definitions/*.yaml
var DefinitionsFS embed.FS

// DefaultGenerator is the generator used by sections that do not name one.
const DefaultGenerator = "prompt"

// DefaultErrorPlaceholder is written in place of a section whose
// generation failed. It takes the error message as its single argument.
const DefaultErrorPlaceholder = "[Erro ao gerar seção: %s]"

var (
	// ErrUnknownType is returned when a document type key is not in the catalog.
	ErrUnknownType = errors.New("unknown document type")

	// ErrInvalidDefinition is returned when a definition fails validation.
	ErrInvalidDefinition = errors.New("invalid document type definition")
)

// FactBlock is a labelled slice of one facts section shown to a generator.
type FactBlock struct {
	Section string        `yaml:"section" json:"section"`
	Heading string        `yaml:"heading" json:"heading"`
	Labels  []facts.Label `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// Render returns the block as a heading followed by its omit-empty
// label/value lines, or "" when the block has nothing to show.
func (b FactBlock) Render(f facts.Facts) string {
	body := facts.RenderSection(f, b.Section, b.Labels)
	if body == "" {
		return ""
	}
	heading := b.Heading
	if heading == "" {
		heading = b.Section
	}
	return "### " + heading + "\n" + body
}

// SectionSpec describes one section of a document type.
type SectionSpec struct {
	Title     string `yaml:"title" json:"title"`
	Query     string `yaml:"query" json:"query"`
	Role      string `yaml:"role" json:"role"`
	Generator string `yaml:"generator,omitempty" json:"generator,omitempty"`

	// Facts names the blocks rendered into this section's prompt.
	Facts []string `yaml:"facts" json:"facts"`

	// Band overrides the document band when non-zero.
	Band validator.Band `yaml:"band,omitempty" json:"band,omitempty"`

	// List sections may use bullets.
	List bool `yaml:"list,omitempty" json:"list,omitempty"`

	// Temperature overrides the document temperature when non-zero.
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	MustMention []validator.FactRef `yaml:"must_mention,omitempty" json:"must_mention,omitempty"`
}

// DocumentType is one generatable memo layout.
type DocumentType struct {
	Key               string               `yaml:"key" json:"key"`
	Name              string               `yaml:"name" json:"name"`
	Domain            string               `yaml:"domain" json:"domain"`
	Temperature       float64              `yaml:"temperature" json:"temperature"`
	Band              validator.Band       `yaml:"band" json:"band"`
	MinParagraphChars int                  `yaml:"min_paragraph_chars" json:"min_paragraph_chars"`
	ErrorPlaceholder  string               `yaml:"error_placeholder" json:"error_placeholder"`
	Style             string               `yaml:"style" json:"style"`
	Blocks            map[string]FactBlock `yaml:"blocks" json:"blocks"`
	MustMention       []validator.FactRef  `yaml:"must_mention,omitempty" json:"must_mention,omitempty"`
	Sections          []SectionSpec        `yaml:"sections" json:"sections"`

	// Coherence selects validator coherence checks. Omitted means the
	// validator defaults; an empty list disables them.
	Coherence []string `yaml:"coherence,omitempty" json:"coherence,omitempty"`
}

// Parse decodes and validates a single YAML definition.
func Parse(data []byte) (*DocumentType, error) {
	var dt DocumentType
	if err := yaml.Unmarshal(data, &dt); err != nil {
		return nil, fmt.Errorf("parse document type: %w", err)
	}
	dt.applyDefaults()
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return &dt, nil
}

func (d *DocumentType) applyDefaults() {
	if d.ErrorPlaceholder == "" {
		d.ErrorPlaceholder = DefaultErrorPlaceholder
	}
	for i := range d.Sections {
		if d.Sections[i].Generator == "" {
			d.Sections[i].Generator = DefaultGenerator
		}
	}
}

// Validate checks the definition's internal consistency: a key, at least
// one section, unique titles, known fact blocks and known coherence checks.
func (d *DocumentType) Validate() error {
	var problems []string
	if d.Key == "" {
		problems = append(problems, "missing key")
	}
	if len(d.Sections) == 0 {
		problems = append(problems, "no sections")
	}
	if d.Band.Max != 0 && d.Band.Min > d.Band.Max {
		problems = append(problems, fmt.Sprintf("band min %d exceeds max %d", d.Band.Min, d.Band.Max))
	}
	if !strings.Contains(d.ErrorPlaceholder, "%s") {
		problems = append(problems, "error_placeholder must contain %s")
	}

	seen := make(map[string]bool, len(d.Sections))
	for i, s := range d.Sections {
		if s.Title == "" {
			problems = append(problems, fmt.Sprintf("section %d has no title", i+1))
			continue
		}
		if seen[s.Title] {
			problems = append(problems, fmt.Sprintf("duplicate section title %q", s.Title))
		}
		seen[s.Title] = true
		for _, name := range s.Facts {
			if _, ok := d.Blocks[name]; !ok {
				problems = append(problems, fmt.Sprintf("section %q references unknown fact block %q", s.Title, name))
			}
		}
	}
	for _, name := range d.Coherence {
		if !validator.KnownCoherenceCheck(name) {
			problems = append(problems, fmt.Sprintf("unknown coherence check %q", name))
		}
	}

	if len(problems) > 0 {
		key := d.Key
		if key == "" {
			key = "<unnamed>"
		}
		return fmt.Errorf("%w %s: %s", ErrInvalidDefinition, key, strings.Join(problems, "; "))
	}
	return nil
}

// Titles returns section titles in definition order.
func (d *DocumentType) Titles() []string {
	titles := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Section returns the spec for title.
func (d *DocumentType) Section(title string) (SectionSpec, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return SectionSpec{}, false
}

// BandFor returns the section's band, falling back to the document band.
func (d *DocumentType) BandFor(s SectionSpec) validator.Band {
	if s.Band != (validator.Band{}) {
		return s.Band
	}
	return d.Band
}

// TemperatureFor returns the section's temperature, falling back to the
// document temperature.
func (d *DocumentType) TemperatureFor(s SectionSpec) float64 {
	if s.Temperature > 0 {
		return s.Temperature
	}
	return d.Temperature
}

// BlocksFor returns the fact blocks named by s, in the order listed.
func (d *DocumentType) BlocksFor(s SectionSpec) []FactBlock {
	blocks := make([]FactBlock, 0, len(s.Facts))
	for _, name := range s.Facts {
		if b, ok := d.Blocks[name]; ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Rules converts the definition into validator rules.
func (d *DocumentType) Rules() validator.Rules {
	rules := validator.Rules{
		MinParagraphChars: d.MinParagraphChars,
		MustMention:       slices.Clone(d.MustMention),
		Coherence:         slices.Clone(d.Coherence),
	}
	for _, s := range d.Sections {
		rules.Sections = append(rules.Sections, validator.SectionRule{
			Title:       s.Title,
			Band:        d.BandFor(s),
			MustMention: slices.Clone(s.MustMention),
		})
	}
	return rules
}

// Catalog is a set of document types keyed by Key.
type Catalog struct {
	types map[string]*DocumentType
}

// Load returns the built-in catalog.
func Load() (*Catalog, error) {
	return LoadFS(DefinitionsFS, "definitions")
}

// LoadFS reads every *.yaml and *.yml file in dir of fsys.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	c := &Catalog{types: make(map[string]*DocumentType)}
	if err := c.addFS(fsys, dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge adds the definitions found in the directory at path, replacing
// built-in types with the same key.
func (c *Catalog) Merge(dir string) error {
	return c.addFS(os.DirFS(dir), ".")
}

func (c *Catalog) addFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read definitions %s: %w", dir, err)
	}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read definition %s: %w", e.Name(), err)
		}
		dt, err := Parse(data)
		if err != nil {
			return fmt.Errorf("load %s: %w", e.Name(), err)
		}
		c.types[dt.Key] = dt
	}
	return nil
}

// Add registers dt, replacing any type with the same key.
func (c *Catalog) Add(dt *DocumentType) error {
	dt.applyDefaults()
	if err := dt.Validate(); err != nil {
		return err
	}
	c.types[dt.Key] = dt
	return nil
}

// Get returns the document type for key.
func (c *Catalog) Get(key string) (*DocumentType, error) {
	dt, ok := c.types[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, key)
	}
	return dt, nil
}

// Keys returns all type keys, sorted.
func (c *Catalog) Keys() []string {
	return slices.Sorted(maps.Keys(c.types))
}
