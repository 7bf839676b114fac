// Package llm is the outbound text-completion collaborator. Generators talk
// to the Completer interface; the production implementation adapts any
// langchaingo model with rate limiting and a per-call timeout.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model produced no choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Request is one completion call.
type Request struct {
	System      string
	User        string
	Temperature float64

	// Model overrides the client's default model when non-empty.
	Model string
}

// Completer is the complete(system_prompt, user_prompt, temperature) -> text
// collaborator.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
