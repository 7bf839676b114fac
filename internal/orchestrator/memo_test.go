package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/memoforge/internal/agent"
	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticGen returns a generator that always succeeds with text after delay.
func staticGen(text string, delay time.Duration) agent.Generator {
	return agent.GeneratorFunc(func(ctx context.Context, in agent.Input) (agent.Output, error) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return agent.Output{}, ctx.Err()
			}
		}
		return agent.Output{Paragraphs: []string{text}, Model: "test-model", Temperature: 0.2}, nil
	})
}

// flakyGen fails the first failures calls and then succeeds. It records the
// context it saw on every call.
type flakyGen struct {
	failures int32
	calls    atomic.Int32

	mu       sync.Mutex
	contexts []string
}

func (g *flakyGen) Generate(_ context.Context, in agent.Input) (agent.Output, error) {
	n := g.calls.Add(1)
	g.mu.Lock()
	g.contexts = append(g.contexts, in.Context)
	g.mu.Unlock()
	if n <= g.failures {
		return agent.Output{}, fmt.Errorf("attempt %d failed", n)
	}
	return agent.Output{Paragraphs: []string{"ok after retries"}}, nil
}

func (g *flakyGen) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.contexts...)
}

// rewriterGen generates fixed text and rewrites paragraphs on demand.
type rewriterGen struct {
	fail    int32
	calls   atomic.Int32
	lastReq agent.Rewrite
}

func (g *rewriterGen) Generate(context.Context, agent.Input) (agent.Output, error) {
	return agent.Output{Paragraphs: []string{"a", "b", "c"}}, nil
}

func (g *rewriterGen) RewriteParagraph(_ context.Context, req agent.Rewrite) (string, error) {
	n := g.calls.Add(1)
	if n <= g.fail {
		return "", errors.New("model unavailable")
	}
	g.lastReq = req
	req.Paragraphs[req.Index] = "mutated"
	return "novo parágrafo", nil
}

// countingSource returns a fixed text per section and counts calls.
type countingSource struct {
	texts map[string]string
	calls atomic.Int32
}

func (s *countingSource) Retrieve(_ context.Context, title, _ string) string {
	s.calls.Add(1)
	return s.texts[title]
}

func newTestMemo(t *testing.T, sections []SectionDef, opts ...Option) *Memo {
	t.Helper()
	def, err := NewDefinition("test", sections)
	require.NoError(t, err)
	opts = append([]Option{WithConfig(Config{Retries: 2, EventBuffer: 256})}, opts...)
	m := NewMemo(def, opts...)
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("run-%04d-test", n)
	}
	return m
}

func drain(m *Memo) []ProgressEvent {
	m.Close()
	var events []ProgressEvent
	for ev := range m.Progress() {
		events = append(events, ev)
	}
	return events
}

func TestMemo_GenerateFullDocument_DefinitionOrder(t *testing.T) {
	// Later sections finish first.
	m := newTestMemo(t, []SectionDef{
		{Title: "Resumo", Generator: staticGen("resumo", 40*time.Millisecond)},
		{Title: "Mercado", Generator: staticGen("mercado", 20*time.Millisecond)},
		{Title: "Riscos", Generator: staticGen("riscos", 0)},
	})

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Resumo", "Mercado", "Riscos"}, doc.Titles())
	assert.Equal(t, RunCompleted, doc.State)
	assert.Equal(t, "test", doc.Type)
	assert.Equal(t, "run-0001-test", doc.RunID)
	require.NotNil(t, doc.Validation)
	assert.False(t, doc.CompletedAt.Before(doc.StartedAt))

	for _, s := range doc.Sections {
		assert.Equal(t, StateSucceeded, s.Metadata.State)
		assert.Equal(t, 1, s.Metadata.Attempts)
		assert.Equal(t, "test-model", s.Metadata.Model)
		assert.Equal(t, doc.RunID, s.Metadata.RunID)
	}
	assert.Equal(t, []string{"mercado"}, doc.Map()["Mercado"])
}

func TestMemo_GenerateFullDocument_FailedSectionGetsPlaceholder(t *testing.T) {
	var calls atomic.Int32
	failing := agent.GeneratorFunc(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		return agent.Output{}, errors.New("boom")
	})
	m := newTestMemo(t, []SectionDef{
		{Title: "A", Generator: staticGen("a", 0)},
		{Title: "B", Generator: failing, GeneratorName: "prompt"},
		{Title: "C", Generator: staticGen("c", 0)},
	})

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 3)

	b, ok := doc.Section("B")
	require.True(t, ok)
	assert.True(t, b.Failed())
	assert.Equal(t, []string{fmt.Sprintf(catalog.DefaultErrorPlaceholder, "boom")}, b.Paragraphs)
	assert.Equal(t, "boom", b.Metadata.Error)
	assert.Equal(t, 3, b.Metadata.Attempts)
	assert.Equal(t, "prompt", b.Metadata.Generator)
	assert.Equal(t, int32(3), calls.Load())

	for _, title := range []string{"A", "C"} {
		s, _ := doc.Section(title)
		assert.False(t, s.Failed(), title)
	}
}

func TestMemo_GenerateFullDocument_PanickingGeneratorIsContained(t *testing.T) {
	var calls atomic.Int32
	panicking := agent.GeneratorFunc(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		var counts map[string]int
		counts["x"]++
		return agent.Output{}, nil
	})
	m := newTestMemo(t, []SectionDef{
		{Title: "A", Generator: staticGen("a", 0)},
		{Title: "B", Generator: panicking},
	})

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	require.Len(t, doc.Sections, 2)

	a, _ := doc.Section("A")
	assert.False(t, a.Failed())

	b, _ := doc.Section("B")
	assert.True(t, b.Failed())
	assert.Contains(t, b.Metadata.Error, "generator panic")
	assert.Contains(t, b.Paragraphs[0], "generator panic")
	assert.Equal(t, 1, b.Metadata.Attempts, "a panic is not retried")
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemo_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	rejected := agent.GeneratorFunc(func(context.Context, agent.Input) (agent.Output, error) {
		calls.Add(1)
		return agent.Output{}, llm.Permanent(errors.New("API returned unexpected status code: 401"))
	})
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: rejected}})

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	a, _ := doc.Section("A")
	assert.True(t, a.Failed())
	assert.Equal(t, 1, a.Metadata.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMemo_GenerateFullDocument_CustomPlaceholder(t *testing.T) {
	failing := agent.GeneratorFunc(func(context.Context, agent.Input) (agent.Output, error) {
		return agent.Output{}, errors.New("timeout")
	})
	m := newTestMemo(t,
		[]SectionDef{{Title: "A", Generator: failing}},
		WithConfig(Config{Retries: 0, Placeholder: "[falha: %s]"}),
	)

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"[falha: timeout]"}, doc.Sections[0].Paragraphs)
	assert.Equal(t, 1, doc.Sections[0].Metadata.Attempts)
}

func TestMemo_RetryWithinBudget(t *testing.T) {
	gen := &flakyGen{failures: 2}
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: gen}})

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)

	s := doc.Sections[0]
	assert.False(t, s.Failed())
	assert.Equal(t, 3, s.Metadata.Attempts)
	assert.Equal(t, []string{"ok after retries"}, s.Paragraphs)
}

func TestMemo_ContextFetchedOnceAndReused(t *testing.T) {
	gen := &flakyGen{failures: 2}
	src := &countingSource{texts: map[string]string{"A": "trecho do documento"}}
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: gen}}, WithRetriever(src))

	doc, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{DocumentID: "doc-1"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, []string{"trecho do documento", "trecho do documento", "trecho do documento"}, gen.seen())
	assert.True(t, doc.Sections[0].Metadata.ContextAvailable)
}

func TestMemo_ContextPrecedence(t *testing.T) {
	src := &countingSource{texts: map[string]string{"Retrieved": "passagem"}}

	tests := []struct {
		name    string
		title   string
		opts    RunOptions
		want    string
		fetches int32
	}{
		{
			name:    "retrieved wins over shared",
			title:   "Retrieved",
			opts:    RunOptions{DocumentID: "doc", SharedContext: "compartilhado"},
			want:    "passagem",
			fetches: 1,
		},
		{
			name:    "empty retrieval falls back to shared",
			title:   "Other",
			opts:    RunOptions{DocumentID: "doc", SharedContext: "compartilhado"},
			want:    "compartilhado",
			fetches: 1,
		},
		{
			name:  "no document id uses shared",
			title: "Retrieved",
			opts:  RunOptions{SharedContext: "compartilhado"},
			want:  "compartilhado",
		},
		{
			name:  "nothing available",
			title: "Retrieved",
			opts:  RunOptions{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src.calls.Store(0)
			gen := &flakyGen{}
			m := newTestMemo(t, []SectionDef{{Title: tt.title, Generator: gen}}, WithRetriever(src))

			sec, err := m.GenerateSection(context.Background(), tt.title, facts.Facts{}, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, gen.seen())
			assert.Equal(t, tt.want != "", sec.Metadata.ContextAvailable)
			assert.Equal(t, tt.fetches, src.calls.Load())
		})
	}
}

func TestMemo_RunRetrieverOverride(t *testing.T) {
	def := &countingSource{texts: map[string]string{"A": "padrão"}}
	override := &countingSource{texts: map[string]string{"A": "específico"}}
	gen := &flakyGen{}
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: gen}}, WithRetriever(def))

	_, err := m.GenerateSection(context.Background(), "A", facts.Facts{}, RunOptions{DocumentID: "d", Retriever: override})
	require.NoError(t, err)
	assert.Equal(t, []string{"específico"}, gen.seen())
	assert.Equal(t, int32(0), def.calls.Load())
}

func TestMemo_EventOrdering(t *testing.T) {
	m := newTestMemo(t, []SectionDef{
		{Title: "A", Generator: staticGen("a", 10*time.Millisecond)},
		{Title: "B", Generator: &flakyGen{failures: 1}},
		{Title: "C", Generator: agent.GeneratorFunc(func(context.Context, agent.Input) (agent.Output, error) {
			return agent.Output{}, errors.New("down")
		})},
	})

	_, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	events := drain(m)
	require.NotEmpty(t, events)

	assert.Equal(t, EventRunStarted, events[0].Kind)
	last := events[len(events)-1]
	assert.Equal(t, EventRunCompleted, last.Kind)
	assert.Equal(t, "2/3 sections succeeded", last.Message)

	perSection := map[string][]EventKind{}
	for _, ev := range events {
		if ev.Section != "" {
			perSection[ev.Section] = append(perSection[ev.Section], ev.Kind)
		}
	}
	assert.Equal(t, []EventKind{EventSectionStarted, EventContextFetched, EventSectionSucceeded}, perSection["A"])
	assert.Equal(t, []EventKind{EventSectionStarted, EventContextFetched, EventSectionRetried, EventSectionSucceeded}, perSection["B"])
	assert.Equal(t, []EventKind{
		EventSectionStarted, EventContextFetched,
		EventSectionRetried, EventSectionRetried,
		EventSectionFailed,
	}, perSection["C"])
}

func TestMemo_OnProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var kinds []EventKind
	m := newTestMemo(t,
		[]SectionDef{{Title: "A", Generator: staticGen("a", 0)}},
		WithOnProgress(func(ev ProgressEvent) {
			mu.Lock()
			kinds = append(kinds, ev.Kind)
			mu.Unlock()
		}),
	)

	_, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{
		EventRunStarted, EventSectionStarted, EventContextFetched, EventSectionSucceeded, EventRunCompleted,
	}, kinds)
}

func TestMemo_CanceledContextStopsRetrying(t *testing.T) {
	gen := agent.GeneratorFunc(func(ctx context.Context, _ agent.Input) (agent.Output, error) {
		return agent.Output{}, ctx.Err()
	})
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: gen}},
		WithConfig(Config{Retries: 5, RetryBackoff: time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := m.GenerateFullDocument(ctx, facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	assert.True(t, doc.Sections[0].Failed())
	assert.Equal(t, 1, doc.Sections[0].Metadata.Attempts)
}

func TestMemo_GenerateSection(t *testing.T) {
	m := newTestMemo(t, []SectionDef{
		{Title: "A", Generator: staticGen("a", 0)},
		{Title: "B", Generator: staticGen("b", 0)},
	})

	sec, err := m.GenerateSection(context.Background(), "B", facts.Facts{}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "B", sec.Title)
	assert.Equal(t, []string{"b"}, sec.Paragraphs)

	_, err = m.GenerateSection(context.Background(), "Z", facts.Facts{}, RunOptions{})
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestMemo_NoDefinition(t *testing.T) {
	m := NewMemo(nil)

	_, err := m.GenerateFullDocument(context.Background(), facts.Facts{}, RunOptions{})
	assert.ErrorIs(t, err, ErrNoDefinition)

	_, err = m.GenerateSection(context.Background(), "A", facts.Facts{}, RunOptions{})
	assert.ErrorIs(t, err, ErrNoDefinition)

	_, err = m.RegenerateParagraph(context.Background(), ParagraphRequest{Section: "A"})
	assert.ErrorIs(t, err, ErrNoDefinition)
}

func TestMemo_RegenerateParagraph(t *testing.T) {
	gen := &rewriterGen{fail: 1}
	m := newTestMemo(t, []SectionDef{{Title: "A", Generator: gen}})

	current := []string{"primeiro", "segundo", "terceiro"}
	out, err := m.RegenerateParagraph(context.Background(), ParagraphRequest{
		Section:      "A",
		Index:        1,
		Current:      current,
		Instructions: "mais conciso",
	})
	require.NoError(t, err)

	assert.Equal(t, "novo parágrafo", out)
	assert.Equal(t, []string{"primeiro", "segundo", "terceiro"}, current)
	assert.Equal(t, int32(2), gen.calls.Load())
	assert.Equal(t, 1, gen.lastReq.Index)
	assert.Equal(t, "mais conciso", gen.lastReq.Instructions)
}

func TestMemo_RegenerateParagraph_Errors(t *testing.T) {
	m := newTestMemo(t, []SectionDef{
		{Title: "A", Generator: &rewriterGen{fail: 10}},
		{Title: "Plain", Generator: staticGen("x", 0)},
	})
	ctx := context.Background()
	current := []string{"um", "dois"}

	_, err := m.RegenerateParagraph(ctx, ParagraphRequest{Section: "Z", Current: current})
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = m.RegenerateParagraph(ctx, ParagraphRequest{Section: "A", Index: 2, Current: current})
	assert.ErrorIs(t, err, ErrParagraphIndex)

	_, err = m.RegenerateParagraph(ctx, ParagraphRequest{Section: "A", Index: -1, Current: current})
	assert.ErrorIs(t, err, ErrParagraphIndex)

	_, err = m.RegenerateParagraph(ctx, ParagraphRequest{Section: "Plain", Index: 0, Current: current})
	assert.ErrorIs(t, err, ErrRewriteUnsupported)

	_, err = m.RegenerateParagraph(ctx, ParagraphRequest{Section: "A", Index: 0, Current: current})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Contains(t, err.Error(), "model unavailable")
}
