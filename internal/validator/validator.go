// Package validator checks a generated memo against its facts. Checks are
// informational: the validator never edits text and never blocks delivery.
// Only structural violations make a document invalid; every other finding is
// a warning.
package validator

import (
	"strings"

	"github.com/dusk-indust/memoforge/internal/facts"
	"go.uber.org/zap"
)

// DefaultRedundancyThreshold is the similarity ratio above which two
// sections are reported as redundant.
const DefaultRedundancyThreshold = 0.3

// charsPerPage estimates printed pages from character counts.
const charsPerPage = 3000

// Band is an inclusive paragraph-count range.
type Band struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether n lies within the band. A zero Max is unbounded.
func (b Band) Contains(n int) bool {
	if n < b.Min {
		return false
	}
	return b.Max == 0 || n <= b.Max
}

// FactRef names a fact whose value must appear in the generated text.
type FactRef struct {
	Section string `yaml:"section" json:"section"`
	Field   string `yaml:"field" json:"field"`

	// Format is "", "percent" or "multiple" and selects the suffixes tried
	// when matching numbers.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	// Scope is the title of the section that must mention the fact.
	// Empty means anywhere in the document.
	Scope string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// Key returns "section.field".
func (r FactRef) Key() string {
	return r.Section + "." + r.Field
}

// SectionRule is the structural expectation for one section.
type SectionRule struct {
	Title       string
	Band        Band
	MustMention []FactRef
}

// Rules describe what a valid document of one type looks like.
type Rules struct {
	Sections          []SectionRule
	MinParagraphChars int
	MustMention       []FactRef

	// Coherence names the checks to run. Nil selects DefaultCoherence;
	// an empty non-nil slice disables them.
	Coherence []string
}

// Section is the validator's view of one generated section.
type Section struct {
	Title      string
	Paragraphs []string

	// Failed marks sections holding an error placeholder. They still get
	// structural checks but are excluded from redundancy comparison.
	Failed bool
}

// Text joins the section's paragraphs with blank lines.
func (s Section) Text() string {
	return strings.Join(s.Paragraphs, "\n\n")
}

// Config tunes a Validator.
type Config struct {
	// RedundancyThreshold overrides DefaultRedundancyThreshold when > 0.
	RedundancyThreshold float64

	// MinParagraphChars overrides Rules.MinParagraphChars when > 0.
	MinParagraphChars int

	// ReferenceYear anchors the timeline check. Zero uses the current year.
	ReferenceYear int
}

// Validator runs every check over a finished document.
type Validator struct {
	threshold float64
	minChars  int
	year      int
	logger    *zap.Logger
}

// New creates a Validator.
func New(cfg Config, logger *zap.Logger) *Validator {
	if cfg.RedundancyThreshold <= 0 {
		cfg.RedundancyThreshold = DefaultRedundancyThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		threshold: cfg.RedundancyThreshold,
		minChars:  cfg.MinParagraphChars,
		year:      cfg.ReferenceYear,
		logger:    logger,
	}
}

// Threshold returns the redundancy threshold in use.
func (v *Validator) Threshold() float64 {
	return v.threshold
}

// Validate checks sections against f and rules and returns a fresh Result.
func (v *Validator) Validate(f facts.Facts, sections []Section, rules Rules) *Result {
	minChars := rules.MinParagraphChars
	if v.minChars > 0 {
		minChars = v.minChars
	}

	res := &Result{IsValid: true, Threshold: v.threshold}

	ruleByTitle := make(map[string]SectionRule, len(rules.Sections))
	for _, r := range rules.Sections {
		ruleByTitle[r.Title] = r
	}

	var all strings.Builder
	textByTitle := make(map[string]string, len(sections))
	for _, sec := range sections {
		text := sec.Text()
		textByTitle[sec.Title] = text
		if all.Len() > 0 {
			all.WriteString("\n\n")
		}
		all.WriteString(text)

		stats := checkStructure(sec, ruleByTitle[sec.Title].Band, minChars)
		res.Sections = append(res.Sections, stats)
		if !stats.Valid {
			res.IsValid = false
			res.Errors = append(res.Errors, stats.Problems...)
		}
		res.Totals.Characters += stats.Characters
		res.Totals.Paragraphs += stats.Paragraphs
	}
	res.Totals.Sections = len(sections)
	res.Totals.EstimatedPages = float64(res.Totals.Characters) / charsPerPage

	// Fact presence: document-wide refs, then section-scoped ones.
	refs := append([]FactRef(nil), rules.MustMention...)
	for _, r := range rules.Sections {
		for _, ref := range r.MustMention {
			if ref.Scope == "" {
				ref.Scope = r.Title
			}
			refs = append(refs, ref)
		}
	}
	for _, ref := range refs {
		text := all.String()
		if ref.Scope != "" {
			text = textByTitle[ref.Scope]
		}
		if m, ok := missingFact(f, text, ref); ok {
			res.MissingFacts = append(res.MissingFacts, m)
			res.Warnings = append(res.Warnings, m.String())
		}
	}

	res.Coherence = CheckCoherence(CoherenceInput{Facts: f, Text: all.String(), Year: v.year}, rules.Coherence)
	for _, issue := range res.Coherence {
		res.Warnings = append(res.Warnings, issue.String())
	}

	res.Redundancy = CheckRedundancy(sections, v.threshold)
	for _, pair := range res.Redundancy.Pairs {
		res.Warnings = append(res.Warnings, pair.String())
	}

	v.logger.Debug("document validated",
		zap.Bool("valid", res.IsValid),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)),
	)
	return res
}
