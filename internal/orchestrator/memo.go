package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/dusk-indust/memoforge/internal/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ Orchestrator = (*Memo)(nil)

// Memo generates documents for one Definition.
type Memo struct {
	def        *Definition
	cfg        Config
	retriever  retrieval.Source
	validator  *validator.Validator
	rules      validator.Rules
	progress   *ProgressReporter
	onProgress func(ProgressEvent)
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures a Memo.
type Option func(*Memo)

// WithConfig sets the run policy.
func WithConfig(cfg Config) Option {
	return func(m *Memo) { m.cfg = cfg }
}

// WithRetriever sets the default context source.
func WithRetriever(src retrieval.Source) Option {
	return func(m *Memo) { m.retriever = src }
}

// WithValidator sets the validator and the rules it checks.
func WithValidator(v *validator.Validator, rules validator.Rules) Option {
	return func(m *Memo) {
		m.validator = v
		m.rules = rules
	}
}

// WithProgressReporter shares a reporter between Memos.
func WithProgressReporter(pr *ProgressReporter) Option {
	return func(m *Memo) { m.progress = pr }
}

// WithOnProgress registers a callback invoked for every event. It is called
// concurrently from section goroutines.
func WithOnProgress(fn func(ProgressEvent)) Option {
	return func(m *Memo) { m.onProgress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Memo) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemo creates a Memo for def.
func NewMemo(def *Definition, opts ...Option) *Memo {
	m := &Memo{
		def:    def,
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.progress == nil {
		m.progress = NewProgressReporter(m.cfg.EventBuffer)
	}
	if m.validator == nil {
		m.validator = validator.New(validator.Config{}, m.logger)
	}
	return m
}

// Definition returns the Memo's definition.
func (m *Memo) Definition() *Definition {
	return m.def
}

// Progress returns a channel that emits progress events.
func (m *Memo) Progress() <-chan ProgressEvent {
	return m.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (m *Memo) Close() {
	m.progress.Close()
}

func (m *Memo) emit(ev ProgressEvent) {
	m.progress.Emit(ev)
	if m.onProgress != nil {
		m.onProgress(ev)
	}
}

func (m *Memo) check() error {
	if m == nil || m.def == nil || m.def.Len() == 0 {
		return ErrNoDefinition
	}
	return nil
}

// GenerateFullDocument implements Orchestrator.
func (m *Memo) GenerateFullDocument(ctx context.Context, f facts.Facts, opts RunOptions) (*Document, error) {
	if err := m.check(); err != nil {
		return nil, err
	}

	runID := m.newID()
	doc := &Document{
		RunID:     runID,
		Type:      m.def.Name(),
		State:     RunRunning,
		StartedAt: m.now(),
	}
	m.logger.Info("generating document",
		zap.String("run", runID),
		zap.String("type", m.def.Name()),
		zap.Int("sections", m.def.Len()),
		zap.Bool("retrieval", opts.DocumentID != ""),
	)
	m.emit(ProgressEvent{Kind: EventRunStarted, RunID: runID, Message: m.def.Name(), At: doc.StartedAt})

	defs := m.def.Sections()
	tasks := make([]SectionTask, len(defs))
	for i, sd := range defs {
		tasks[i] = m.task(sd, f, opts)
	}

	results := NewFanOut(m.cfg, m.emit, m.logger).Run(ctx, runID, tasks)

	sections := make([]GeneratedSection, len(results))
	for i, res := range results {
		sections[i] = m.section(defs[i], res, runID)
	}
	sorted, err := SortSections(sections, m.def.Titles())
	if err != nil {
		return nil, fmt.Errorf("generate document %s: %w", m.def.Name(), err)
	}
	doc.Sections = sorted
	doc.Validation = m.validator.Validate(f, ValidatorSections(sorted), m.rules)
	doc.State = RunCompleted
	doc.CompletedAt = m.now()

	failed := 0
	for _, s := range sorted {
		if s.Failed() {
			failed++
		}
	}
	m.logger.Info("document generated",
		zap.String("run", runID),
		zap.Int("failed", failed),
		zap.Bool("valid", doc.Validation.IsValid),
		zap.Duration("elapsed", doc.CompletedAt.Sub(doc.StartedAt)),
	)
	m.emit(ProgressEvent{
		Kind:    EventRunCompleted,
		RunID:   runID,
		Message: fmt.Sprintf("%d/%d sections succeeded", len(sorted)-failed, len(sorted)),
		At:      doc.CompletedAt,
	})
	return doc, nil
}

// GenerateSection implements Orchestrator.
func (m *Memo) GenerateSection(ctx context.Context, title string, f facts.Facts, opts RunOptions) (*GeneratedSection, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	sd, ok := m.def.Section(title)
	if !ok {
		return nil, fmt.Errorf("generate section %q: %w", title, ErrUnknownSection)
	}

	runID := m.newID()
	res := NewFanOut(m.cfg, m.emit, m.logger).Run(ctx, runID, []SectionTask{m.task(sd, f, opts)})
	sec := m.section(sd, res[0], runID)
	return &sec, nil
}

// RegenerateParagraph implements Orchestrator. req.Current is copied before
// use, so the caller's slice is never modified.
func (m *Memo) RegenerateParagraph(ctx context.Context, req ParagraphRequest) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	sd, ok := m.def.Section(req.Section)
	if !ok {
		return "", fmt.Errorf("regenerate paragraph in %q: %w", req.Section, ErrUnknownSection)
	}
	if req.Index < 0 || req.Index >= len(req.Current) {
		return "", fmt.Errorf("regenerate paragraph %d of %q (%d paragraphs): %w",
			req.Index, req.Section, len(req.Current), ErrParagraphIndex)
	}
	rw, ok := sd.Generator.(agent.Rewriter)
	if !ok {
		return "", fmt.Errorf("regenerate paragraph in %q: %w", req.Section, ErrRewriteUnsupported)
	}

	rewrite := agent.Rewrite{
		Facts:        req.Facts,
		Paragraphs:   slices.Clone(req.Current),
		Index:        req.Index,
		Instructions: req.Instructions,
		Temperature:  req.Temperature,
		Model:        req.Model,
	}
	out, attempts, err := retry(ctx, m.cfg.attempts(), m.cfg.RetryBackoff,
		func(ctx context.Context, _ int) (string, error) {
			return guard(func() (string, error) { return rw.RewriteParagraph(ctx, rewrite) })
		},
		func(attempt int, err error) {
			m.logger.Warn("paragraph rewrite failed, retrying",
				zap.String("section", req.Section),
				zap.Int("index", req.Index),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		return "", fmt.Errorf("regenerate paragraph %d of %q after %d attempts: %w", req.Index, req.Section, attempts, err)
	}
	return out, nil
}

// task builds the fan-out task for one section. Context precedence is the
// retrieved context, then the run's shared context, then none.
func (m *Memo) task(sd SectionDef, f facts.Facts, opts RunOptions) SectionTask {
	src := opts.Retriever
	if src == nil {
		src = m.retriever
	}
	return SectionTask{
		Title:     sd.Title,
		Generator: sd.Generator,
		FetchContext: func(ctx context.Context) string {
			if src != nil && opts.DocumentID != "" {
				if text := src.Retrieve(ctx, sd.Title, opts.DocumentID); text != "" {
					return text
				}
			}
			return opts.SharedContext
		},
		Input: agent.Input{Facts: f, Model: opts.Model},
	}
}

func (m *Memo) section(sd SectionDef, res SectionResult, runID string) GeneratedSection {
	name := sd.GeneratorName
	if name == "" {
		name = fmt.Sprintf("%T", sd.Generator)
	}
	meta := Metadata{
		Generator:        name,
		Model:            res.Output.Model,
		Temperature:      res.Output.Temperature,
		ContextAvailable: res.ContextAvailable,
		Attempts:         res.Attempts,
		State:            res.State,
		RunID:            runID,
		GeneratedAt:      m.now(),
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
		return GeneratedSection{
			Title:      sd.Title,
			Paragraphs: []string{fmt.Sprintf(m.cfg.placeholder(), res.Err.Error())},
			Metadata:   meta,
		}
	}
	return GeneratedSection{
		Title:      sd.Title,
		Paragraphs: res.Output.Paragraphs,
		Metadata:   meta,
	}
}
