package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/dusk-indust/memoforge/internal/validator"
	"go.uber.org/zap"
)

// ServiceDeps are the collaborators of a Service.
type ServiceDeps struct {
	Completer llm.Completer

	// Registry defaults to agent.NewRegistry().
	Registry *agent.Registry

	// Searcher backs per-section retrieval. Nil disables retrieval.
	Searcher retrieval.Searcher
	TopK     int

	// Validator defaults to one built with the default threshold.
	Validator *validator.Validator

	Kinds         *facts.Registry
	MinReplyChars int

	// Config is the run policy. Its Placeholder is replaced per document
	// type by the type's error placeholder.
	Config Config

	// OnProgress receives every event of every document type.
	OnProgress func(ProgressEvent)

	Logger *zap.Logger
}

type binding struct {
	doc  *catalog.DocumentType
	memo *Memo
}

// Service exposes every document type of a catalog through one API.
type Service struct {
	bindings  map[string]binding
	keys      []string
	validator *validator.Validator
	progress  *ProgressReporter
	logger    *zap.Logger
}

// NewService builds the generators of every catalog type. It fails on the
// first type whose sections cannot be built.
func NewService(cat *catalog.Catalog, deps ServiceDeps) (*Service, error) {
	if deps.Completer == nil {
		return nil, ErrNoCompleter
	}
	if deps.Registry == nil {
		deps.Registry = agent.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New(validator.Config{}, deps.Logger)
	}
	cfg := deps.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}

	s := &Service{
		bindings:  make(map[string]binding),
		keys:      cat.Keys(),
		validator: deps.Validator,
		progress:  NewProgressReporter(cfg.EventBuffer),
		logger:    deps.Logger,
	}
	agentDeps := agent.Deps{
		Completer:     deps.Completer,
		Kinds:         deps.Kinds,
		MinReplyChars: deps.MinReplyChars,
		Logger:        deps.Logger,
	}

	for _, key := range s.keys {
		doc, err := cat.Get(key)
		if err != nil {
			return nil, err
		}
		defs := make([]SectionDef, 0, len(doc.Sections))
		for _, spec := range doc.Sections {
			g, err := deps.Registry.Build(doc, spec, agentDeps)
			if err != nil {
				return nil, fmt.Errorf("document type %s: %w", key, err)
			}
			defs = append(defs, SectionDef{
				Title:         spec.Title,
				Generator:     g,
				GeneratorName: spec.Generator,
				Query:         spec.Query,
			})
		}
		def, err := NewDefinition(key, defs)
		if err != nil {
			return nil, fmt.Errorf("document type %s: %w", key, err)
		}

		typeCfg := cfg
		typeCfg.Placeholder = doc.ErrorPlaceholder
		opts := []Option{
			WithConfig(typeCfg),
			WithValidator(deps.Validator, doc.Rules()),
			WithProgressReporter(s.progress),
			WithOnProgress(deps.OnProgress),
			WithLogger(deps.Logger.With(zap.String("type", key))),
		}
		if deps.Searcher != nil {
			opts = append(opts, WithRetriever(
				retrieval.NewRetriever(deps.Searcher, def.Queries(), deps.TopK, deps.Logger),
			))
		}
		s.bindings[key] = binding{doc: doc, memo: NewMemo(def, opts...)}
	}

	deps.Logger.Debug("service ready",
		zap.Strings("types", s.keys),
		zap.Strings("generators", deps.Registry.Names()),
	)
	return s, nil
}

func (s *Service) binding(docType string) (binding, error) {
	b, ok := s.bindings[docType]
	if !ok {
		return binding{}, fmt.Errorf("%w: %q", catalog.ErrUnknownType, docType)
	}
	return b, nil
}

// Types returns the available document type keys, sorted.
func (s *Service) Types() []string {
	return append([]string(nil), s.keys...)
}

// DocumentType returns the catalog entry for docType.
func (s *Service) DocumentType(docType string) (*catalog.DocumentType, error) {
	b, err := s.binding(docType)
	if err != nil {
		return nil, err
	}
	return b.doc, nil
}

// Definition returns the section definition of docType.
func (s *Service) Definition(docType string) (*Definition, error) {
	b, err := s.binding(docType)
	if err != nil {
		return nil, err
	}
	return b.memo.Definition(), nil
}

// GenerateFullDocument generates every section of docType.
func (s *Service) GenerateFullDocument(ctx context.Context, docType string, f facts.Facts, opts RunOptions) (*Document, error) {
	b, err := s.binding(docType)
	if err != nil {
		return nil, err
	}
	return b.memo.GenerateFullDocument(ctx, f, opts)
}

// GenerateSection generates one section of docType.
func (s *Service) GenerateSection(ctx context.Context, docType, title string, f facts.Facts, opts RunOptions) (*GeneratedSection, error) {
	b, err := s.binding(docType)
	if err != nil {
		return nil, err
	}
	return b.memo.GenerateSection(ctx, title, f, opts)
}

// RegenerateParagraph rewrites one paragraph of a section of docType.
func (s *Service) RegenerateParagraph(ctx context.Context, docType string, req ParagraphRequest) (string, error) {
	b, err := s.binding(docType)
	if err != nil {
		return "", err
	}
	return b.memo.RegenerateParagraph(ctx, req)
}

// Validate checks already generated sections against docType's rules.
func (s *Service) Validate(docType string, f facts.Facts, sections []GeneratedSection) (*validator.Result, error) {
	b, err := s.binding(docType)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(f, ValidatorSections(sections), b.doc.Rules()), nil
}

// Progress returns the event channel shared by every document type.
func (s *Service) Progress() <-chan ProgressEvent {
	return s.progress.Subscribe()
}

// Close closes the shared event channel.
func (s *Service) Close() {
	s.progress.Close()
}
