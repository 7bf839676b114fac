// Package orchestrator generates memo documents. A Memo is parameterized by
// a Definition (the ordered section list of one document type); it fans
// generation out to one goroutine per section, retries failed sections
// within a fixed budget, re-sorts the results into definition order and
// hands the finished document to the validator.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/dusk-indust/memoforge/internal/validator"
)

var (
	// ErrNoDefinition is returned by a Memo without a section definition.
	ErrNoDefinition = errors.New("no section definition")

	// ErrNoCompleter is returned when generators cannot be built because no
	// completion client is configured.
	ErrNoCompleter = agent.ErrNoCompleter

	// ErrUnknownSection is returned for a title outside the definition.
	ErrUnknownSection = errors.New("unknown section")

	// ErrParagraphIndex is returned when a paragraph index is out of range.
	ErrParagraphIndex = agent.ErrParagraphIndex

	// ErrRewriteUnsupported is returned when a section's generator cannot
	// rewrite single paragraphs.
	ErrRewriteUnsupported = errors.New("generator does not support paragraph rewriting")
)

// SectionState is the lifecycle state of one section within a run.
type SectionState string

const (
	StatePending        SectionState = "pending"
	StateContextFetched SectionState = "context_fetched"
	StateGenerating     SectionState = "generating"
	StateSucceeded      SectionState = "succeeded"
	StateFailed         SectionState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s SectionState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// RunState is the lifecycle state of a whole run.
type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
)

// Metadata records how a section was produced.
type Metadata struct {
	Generator        string       `json:"generator"`
	Model            string       `json:"model,omitempty"`
	Temperature      float64      `json:"temperature"`
	ContextAvailable bool         `json:"contextAvailable"`
	Attempts         int          `json:"attempts"`
	State            SectionState `json:"state"`
	Error            string       `json:"error,omitempty"`
	RunID            string       `json:"runId"`
	GeneratedAt      time.Time    `json:"generatedAt"`
}

// GeneratedSection is the output of one section. Paragraphs are either the
// complete generated text or a single error placeholder.
type GeneratedSection struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	Metadata   Metadata `json:"metadata"`
}

// Failed reports whether the section holds an error placeholder.
func (s GeneratedSection) Failed() bool {
	return s.Metadata.State == StateFailed
}

// Document is the result of a full run.
type Document struct {
	RunID       string             `json:"runId"`
	Type        string             `json:"type,omitempty"`
	State       RunState           `json:"state"`
	Sections    []GeneratedSection `json:"sections"`
	Validation  *validator.Result  `json:"validation,omitempty"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt time.Time          `json:"completedAt"`
}

// Map returns {title: paragraphs}.
func (d *Document) Map() map[string][]string {
	m := make(map[string][]string, len(d.Sections))
	for _, s := range d.Sections {
		m[s.Title] = s.Paragraphs
	}
	return m
}

// Titles returns section titles in document order.
func (d *Document) Titles() []string {
	titles := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		titles[i] = s.Title
	}
	return titles
}

// Section returns the section titled title.
func (d *Document) Section(title string) (GeneratedSection, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return GeneratedSection{}, false
}

// ValidatorSections converts generated sections into the validator's view.
func ValidatorSections(sections []GeneratedSection) []validator.Section {
	out := make([]validator.Section, len(sections))
	for i, s := range sections {
		out[i] = validator.Section{
			Title:      s.Title,
			Paragraphs: s.Paragraphs,
			Failed:     s.Failed(),
		}
	}
	return out
}

// RunOptions tune a single run.
type RunOptions struct {
	// DocumentID selects the indexed source document used for retrieval.
	DocumentID string

	// Retriever overrides the Memo's retriever for this run.
	Retriever retrieval.Source

	// SharedContext is used for every section that gets no retrieved context.
	SharedContext string

	Model agent.ModelParams
}

// ParagraphRequest asks for one paragraph of a section to be regenerated.
type ParagraphRequest struct {
	Section string
	Index   int

	// Current is the section's present text. It is read, never written.
	Current []string

	Facts        facts.Facts
	Instructions string

	// Temperature defaults to agent.DefaultRewriteTemperature when nil.
	Temperature *float64
	Model       string
}

// Orchestrator is the external generation interface of one document type.
type Orchestrator interface {
	// GenerateFullDocument generates every section concurrently. It fails
	// only on configuration faults; section failures are reported inline.
	GenerateFullDocument(ctx context.Context, f facts.Facts, opts RunOptions) (*Document, error)

	// GenerateSection generates one section with the same retrieval, retry
	// and post-processing as a full run.
	GenerateSection(ctx context.Context, title string, f facts.Facts, opts RunOptions) (*GeneratedSection, error)

	// RegenerateParagraph returns a single replacement paragraph.
	RegenerateParagraph(ctx context.Context, req ParagraphRequest) (string, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
