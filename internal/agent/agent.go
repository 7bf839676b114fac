// Package agent holds the section generators: the components that turn facts
// and optional retrieved context into the paragraphs of one memo section.
package agent

import (
	"context"
	"errors"

	"github.com/dusk-indust/memoforge/internal/facts"
)

var (
	// ErrEmptyReply is returned when a reply yields no paragraphs.
	ErrEmptyReply = errors.New("empty reply")

	// ErrShortReply is returned when a reply is below the minimum length.
	ErrShortReply = errors.New("reply too short")

	// ErrPlaceholderReply is returned when a reply echoes the error marker.
	ErrPlaceholderReply = errors.New("reply contains error marker")

	// ErrNoCompleter is returned when a generator is built without a
	// completion client.
	ErrNoCompleter = errors.New("no completer configured")

	// ErrParagraphIndex is returned when a rewrite targets a paragraph
	// outside the section.
	ErrParagraphIndex = errors.New("paragraph index out of range")
)

// ModelParams selects the model and temperature for a run. An empty Model
// and a nil Temperature keep the generator's defaults; a non-nil Temperature
// applies to every section, zero included.
type ModelParams struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Float returns a pointer to v, for optional temperatures.
func Float(v float64) *float64 {
	return &v
}

// Input is one generation request.
type Input struct {
	Facts facts.Facts

	// Context is retrieved or shared supporting text. Empty means none.
	Context string

	Model ModelParams
}

// Output is the post-processed result of one generation.
type Output struct {
	Paragraphs  []string
	Model       string
	Temperature float64
}

// Generator produces the paragraphs of one section. Implementations make
// exactly one completion call per Generate and do not retry.
type Generator interface {
	Generate(ctx context.Context, in Input) (Output, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, in Input) (Output, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, in Input) (Output, error) {
	return f(ctx, in)
}

// Rewrite asks for one paragraph of a section to be rewritten.
type Rewrite struct {
	Facts facts.Facts

	// Paragraphs is the current section text. It is never modified.
	Paragraphs []string
	Index      int

	Instructions string

	// Temperature defaults to DefaultRewriteTemperature when nil.
	Temperature *float64
	Model       string
}

// Rewriter regenerates a single paragraph in place of Paragraphs[Index].
type Rewriter interface {
	RewriteParagraph(ctx context.Context, req Rewrite) (string, error)
}
