package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/facts"
	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cannedReply = "A Acme Ltda atua no mercado de software de gestão para clínicas, com receita recorrente e base de clientes diversificada em todo o país.\n\n" +
	"A transação avalia a empresa em múltiplo compatível com pares do setor, com estrutura de pagamento que combina caixa no fechamento e earn-out."

type fakeSearcher struct {
	calls atomic.Int32
}

func (s *fakeSearcher) Search(_ context.Context, documentID, query string, topK int) ([]retrieval.Passage, error) {
	s.calls.Add(1)
	return []retrieval.Passage{{ID: "p1", Content: "trecho relevante de " + documentID}}, nil
}

func newTestService(t *testing.T, deps ServiceDeps) (*Service, *atomic.Int32) {
	t.Helper()
	cat, err := catalog.Load()
	require.NoError(t, err)

	var calls atomic.Int32
	if deps.Completer == nil {
		deps.Completer = llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
			calls.Add(1)
			return cannedReply, nil
		})
	}
	svc, err := NewService(cat, deps)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, &calls
}

func testFacts() facts.Facts {
	return facts.Facts{
		"identification": {"company_name": "Acme Ltda"},
	}
}

func TestService_Types(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})
	cat, err := catalog.Load()
	require.NoError(t, err)

	assert.Equal(t, cat.Keys(), svc.Types())

	def, err := svc.Definition("short_primario")
	require.NoError(t, err)
	doc, err := svc.DocumentType("short_primario")
	require.NoError(t, err)
	assert.Equal(t, doc.Titles(), def.Titles())
}

func TestService_GenerateFullDocument(t *testing.T) {
	svc, calls := newTestService(t, ServiceDeps{})

	doc, err := svc.GenerateFullDocument(context.Background(), "short_primario", testFacts(), RunOptions{})
	require.NoError(t, err)

	dt, err := svc.DocumentType("short_primario")
	require.NoError(t, err)
	assert.Equal(t, dt.Titles(), doc.Titles())
	assert.Equal(t, int32(len(dt.Sections)), calls.Load())
	for _, s := range doc.Sections {
		assert.False(t, s.Failed(), s.Title)
		assert.Equal(t, catalog.DefaultGenerator, s.Metadata.Generator)
		assert.Len(t, s.Paragraphs, 2)
	}
	require.NotNil(t, doc.Validation)
}

func TestService_FailedSectionsUseTypePlaceholder(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{
		Completer: llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
			return "curto", nil
		}),
		Config: Config{Retries: -1},
	})

	doc, err := svc.GenerateFullDocument(context.Background(), "short_primario", testFacts(), RunOptions{})
	require.NoError(t, err)
	for _, s := range doc.Sections {
		require.True(t, s.Failed(), s.Title)
		require.Len(t, s.Paragraphs, 1)
		assert.True(t, strings.HasPrefix(s.Paragraphs[0], "[Erro ao gerar seção:"), s.Paragraphs[0])
		assert.Equal(t, 1, s.Metadata.Attempts)
	}
}

func TestService_Retrieval(t *testing.T) {
	searcher := &fakeSearcher{}
	svc, _ := newTestService(t, ServiceDeps{Searcher: searcher, TopK: 2})

	doc, err := svc.GenerateFullDocument(context.Background(), "short_primario", testFacts(), RunOptions{DocumentID: "deck-1"})
	require.NoError(t, err)

	def, err := svc.Definition("short_primario")
	require.NoError(t, err)
	assert.Equal(t, int32(len(def.Queries())), searcher.calls.Load())
	for _, s := range doc.Sections {
		_, hasQuery := def.Queries()[s.Title]
		assert.Equal(t, hasQuery, s.Metadata.ContextAvailable, s.Title)
	}
}

func TestService_UnknownType(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})
	ctx := context.Background()

	_, err := svc.GenerateFullDocument(ctx, "nope", testFacts(), RunOptions{})
	assert.ErrorIs(t, err, catalog.ErrUnknownType)

	_, err = svc.GenerateSection(ctx, "nope", "Resumo", testFacts(), RunOptions{})
	assert.ErrorIs(t, err, catalog.ErrUnknownType)

	_, err = svc.RegenerateParagraph(ctx, "nope", ParagraphRequest{})
	assert.ErrorIs(t, err, catalog.ErrUnknownType)

	_, err = svc.Validate("nope", testFacts(), nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownType)
}

func TestService_NoCompleter(t *testing.T) {
	cat, err := catalog.Load()
	require.NoError(t, err)

	_, err = NewService(cat, ServiceDeps{})
	assert.ErrorIs(t, err, ErrNoCompleter)
}

func TestService_SectionAndParagraph(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})
	ctx := context.Background()
	dt, err := svc.DocumentType("short_primario")
	require.NoError(t, err)
	title := dt.Sections[0].Title

	sec, err := svc.GenerateSection(ctx, "short_primario", title, testFacts(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, title, sec.Title)
	require.Len(t, sec.Paragraphs, 2)

	current := append([]string(nil), sec.Paragraphs...)
	out, err := svc.RegenerateParagraph(ctx, "short_primario", ParagraphRequest{
		Section: title,
		Index:   1,
		Current: current,
		Facts:   testFacts(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Equal(t, sec.Paragraphs, current)
}

func TestService_Validate(t *testing.T) {
	svc, _ := newTestService(t, ServiceDeps{})

	res, err := svc.Validate("short_primario", testFacts(), []GeneratedSection{
		{Title: "Resumo da oportunidade", Paragraphs: []string{"texto curto"}},
	})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}
