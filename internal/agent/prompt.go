package agent

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/dusk-indust/memoforge/internal/validator"
	"go.uber.org/zap"
)

// DefaultMinReplyChars is the shortest reply accepted before post-processing.
const DefaultMinReplyChars = 100

// DefaultRewriteTemperature is used by RewriteParagraph when none is given.
const DefaultRewriteTemperature = 0.5

// Compile-time interface checks.
var (
	_ Generator = (*PromptGenerator)(nil)
	_ Rewriter  = (*PromptGenerator)(nil)
)

// PromptGenerator builds a prompt from a catalog section, calls the
// completer once and post-processes the reply.
type PromptGenerator struct {
	title       string
	style       string
	role        *template.Template
	blocks      []catalog.FactBlock
	band        validator.Band
	list        bool
	temperature float64
	marker      string

	completer     llm.Completer
	kinds         *facts.Registry
	domain        string
	minReplyChars int
	logger        *zap.Logger
}

// NewPromptGenerator compiles the role template of spec. A template that
// does not parse is a configuration error.
func NewPromptGenerator(doc *catalog.DocumentType, spec catalog.SectionSpec, deps Deps) (*PromptGenerator, error) {
	if deps.Completer == nil {
		return nil, fmt.Errorf("prompt generator %q: %w", spec.Title, ErrNoCompleter)
	}
	role, err := template.New(spec.Title).
		Option("missingkey=zero").
		Funcs(template.FuncMap{"fact": func(string, string) string { return "" }}).
		Parse(spec.Role)
	if err != nil {
		return nil, fmt.Errorf("parse role template for %q: %w", spec.Title, err)
	}

	minReply := deps.MinReplyChars
	if minReply == 0 {
		minReply = DefaultMinReplyChars
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PromptGenerator{
		title:         spec.Title,
		style:         strings.TrimSpace(doc.Style),
		role:          role,
		blocks:        doc.BlocksFor(spec),
		band:          doc.BandFor(spec),
		list:          spec.List,
		temperature:   doc.TemperatureFor(spec),
		marker:        placeholderMarker(doc.ErrorPlaceholder),
		completer:     deps.Completer,
		kinds:         deps.Kinds,
		domain:        doc.Domain,
		minReplyChars: minReply,
		logger:        logger.With(zap.String("section", spec.Title)),
	}, nil
}

// placeholderMarker returns the fixed prefix of the error placeholder, used
// to reject replies that echo it.
func placeholderMarker(placeholder string) string {
	prefix, _, _ := strings.Cut(placeholder, "%")
	return strings.TrimSpace(prefix)
}

// Title returns the section title.
func (g *PromptGenerator) Title() string {
	return g.title
}

// Generate implements Generator.
func (g *PromptGenerator) Generate(ctx context.Context, in Input) (Output, error) {
	acc := g.accessor(in.Facts)
	system, err := g.systemPrompt(acc)
	if err != nil {
		return Output{}, err
	}

	temperature := g.temperature
	if in.Model.Temperature != nil {
		temperature = *in.Model.Temperature
	}

	reply, err := g.completer.Complete(ctx, llm.Request{
		System:      system,
		User:        g.userPrompt(acc, in.Context),
		Temperature: temperature,
		Model:       in.Model.Model,
	})
	if err != nil {
		return Output{}, fmt.Errorf("complete section %q: %w", g.title, err)
	}
	if err := g.checkReply(reply); err != nil {
		return Output{}, fmt.Errorf("section %q: %w", g.title, err)
	}

	paragraphs, err := ParseParagraphs(NormalizeNumbers(reply))
	if err != nil {
		return Output{}, fmt.Errorf("section %q: %w", g.title, err)
	}

	g.logger.Debug("section generated",
		zap.Int("paragraphs", len(paragraphs)),
		zap.Bool("context", in.Context != ""),
	)
	return Output{
		Paragraphs:  paragraphs,
		Model:       modelName(g.completer, in.Model.Model),
		Temperature: temperature,
	}, nil
}

// RewriteParagraph implements Rewriter. The neighbours of the target
// paragraph are shown for local coherence; req.Paragraphs is only read.
func (g *PromptGenerator) RewriteParagraph(ctx context.Context, req Rewrite) (string, error) {
	if req.Index < 0 || req.Index >= len(req.Paragraphs) {
		return "", llm.Permanent(fmt.Errorf("rewrite %q paragraph %d of %d: %w", g.title, req.Index, len(req.Paragraphs), ErrParagraphIndex))
	}
	acc := g.accessor(req.Facts)
	system, err := g.systemPrompt(acc)
	if err != nil {
		return "", err
	}

	temperature := DefaultRewriteTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	reply, err := g.completer.Complete(ctx, llm.Request{
		System:      system,
		User:        g.rewritePrompt(acc, req),
		Temperature: temperature,
		Model:       req.Model,
	})
	if err != nil {
		return "", fmt.Errorf("rewrite %q paragraph %d: %w", g.title, req.Index, err)
	}

	paragraphs, err := ParseParagraphs(NormalizeNumbers(reply))
	if err != nil {
		return "", fmt.Errorf("rewrite %q paragraph %d: %w", g.title, req.Index, err)
	}
	out := strings.Join(paragraphs, " ")
	if g.marker != "" && strings.Contains(out, g.marker) {
		return "", fmt.Errorf("rewrite %q paragraph %d: %w", g.title, req.Index, ErrPlaceholderReply)
	}
	return out, nil
}

func (g *PromptGenerator) accessor(f facts.Facts) *facts.Accessor {
	opts := []facts.AccessorOption{facts.WithDomain(g.domain)}
	if g.kinds != nil {
		opts = append(opts, facts.WithRegistry(g.kinds))
	}
	return facts.NewAccessor(f, opts...)
}

func (g *PromptGenerator) systemPrompt(acc *facts.Accessor) (string, error) {
	role, err := g.role.Clone()
	if err != nil {
		return "", llm.Permanent(fmt.Errorf("clone role template for %q: %w", g.title, err))
	}
	role.Funcs(template.FuncMap{"fact": acc.Text})

	var b strings.Builder
	if g.style != "" {
		b.WriteString(g.style)
		b.WriteString("\n\n")
	}
	if err := role.Execute(&b, nil); err != nil {
		return "", llm.Permanent(fmt.Errorf("render role for %q: %w", g.title, err))
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *PromptGenerator) factBlocks(acc *facts.Accessor) string {
	var parts []string
	for _, block := range g.blocks {
		if s := block.Render(acc.Facts()); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "Nenhum fato disponível para esta seção."
	}
	return strings.Join(parts, "\n\n")
}

func (g *PromptGenerator) userPrompt(acc *facts.Accessor, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Seção: %s\n\n", g.title)

	b.WriteString("## Fatos\n")
	b.WriteString(g.factBlocks(acc))
	b.WriteString("\n\n")

	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString("## Contexto adicional (prioridade menor)\n")
		b.WriteString("Use este material apenas como apoio. Em caso de conflito, os fatos acima prevalecem.\n\n")
		b.WriteString(extra)
		b.WriteString("\n\n")
	}

	b.WriteString("## Formato\n")
	b.WriteString(g.shapeInstruction())
	return b.String()
}

func (g *PromptGenerator) shapeInstruction() string {
	count := "parágrafos"
	if g.band.Max > 0 {
		count = fmt.Sprintf("entre %d e %d parágrafos", g.band.Min, g.band.Max)
	} else if g.band.Min > 0 {
		count = fmt.Sprintf("pelo menos %d parágrafos", g.band.Min)
	}
	if g.list {
		return fmt.Sprintf("Escreva %s, um item por parágrafo, separados por uma linha em branco. "+
			"Marcadores são permitidos. Não use títulos. Use apenas os fatos fornecidos.", count)
	}
	return fmt.Sprintf("Escreva %s em prosa corrida, separados por uma linha em branco. "+
		"Não use títulos, listas ou marcadores. Use apenas os fatos fornecidos.", count)
}

func (g *PromptGenerator) rewritePrompt(acc *facts.Accessor, req Rewrite) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Seção: %s\n\n", g.title)

	b.WriteString("## Fatos\n")
	b.WriteString(g.factBlocks(acc))
	b.WriteString("\n\n")

	if req.Index > 0 {
		b.WriteString("## Parágrafo anterior\n")
		b.WriteString(req.Paragraphs[req.Index-1])
		b.WriteString("\n\n")
	}
	b.WriteString("## Parágrafo atual\n")
	b.WriteString(req.Paragraphs[req.Index])
	b.WriteString("\n\n")
	if req.Index+1 < len(req.Paragraphs) {
		b.WriteString("## Parágrafo seguinte\n")
		b.WriteString(req.Paragraphs[req.Index+1])
		b.WriteString("\n\n")
	}

	if instr := strings.TrimSpace(req.Instructions); instr != "" {
		b.WriteString("## Instrução do usuário\n")
		b.WriteString(instr)
		b.WriteString("\n\n")
	}

	b.WriteString("## Formato\n")
	b.WriteString("Reescreva apenas o parágrafo atual, mantendo a coerência com os parágrafos vizinhos. " +
		"Retorne um único parágrafo, sem títulos nem marcadores.")
	return b.String()
}

// checkReply rejects replies that are not worth parsing so the orchestrator
// retries them.
func (g *PromptGenerator) checkReply(reply string) error {
	trimmed := strings.TrimSpace(reply)
	switch {
	case trimmed == "":
		return ErrEmptyReply
	case len([]rune(trimmed)) < g.minReplyChars:
		return fmt.Errorf("%w: %d characters (minimum %d)", ErrShortReply, len([]rune(trimmed)), g.minReplyChars)
	case g.marker != "" && strings.Contains(trimmed, g.marker):
		return ErrPlaceholderReply
	}
	return nil
}

// modelName reports the model actually used: the override, else the
// completer's default when it exposes one.
func modelName(c llm.Completer, override string) string {
	if override != "" {
		return override
	}
	if named, ok := c.(interface{ ModelName() string }); ok {
		return named.ModelName()
	}
	return ""
}
