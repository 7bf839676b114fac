package agent

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/llm"
	"go.uber.org/zap"
)

// Deps are the collaborators shared by every generator of a run.
type Deps struct {
	Completer llm.Completer

	// Kinds overrides the default fact kind registry.
	Kinds *facts.Registry

	// MinReplyChars overrides DefaultMinReplyChars. Negative disables the
	// length check.
	MinReplyChars int

	Logger *zap.Logger
}

// Factory builds the generator for one section of a document type.
type Factory func(doc *catalog.DocumentType, spec catalog.SectionSpec, deps Deps) (Generator, error)

// Registry maps generator names to their factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a Registry with the prompt generator registered under
// catalog.DefaultGenerator.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}
	r.factories[catalog.DefaultGenerator] = func(doc *catalog.DocumentType, spec catalog.SectionSpec, deps Deps) (Generator, error) {
		return NewPromptGenerator(doc, spec, deps)
	}
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build creates the generator named by spec.Generator.
func (r *Registry) Build(doc *catalog.DocumentType, spec catalog.SectionSpec, deps Deps) (Generator, error) {
	name := spec.Generator
	if name == "" {
		name = catalog.DefaultGenerator
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory registered for generator %q", name)
	}

	g, err := factory(doc, spec, deps)
	if err != nil {
		return nil, fmt.Errorf("build generator %q for section %q: %w", name, spec.Title, err)
	}
	return g, nil
}

// Names returns the registered generator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
