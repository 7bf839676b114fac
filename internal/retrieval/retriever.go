// Package retrieval fetches supporting passages for a memo section from a
// semantic index of the source documents. Retrieval is best-effort: every
// failure degrades to "no context".
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// DefaultTopK is the number of passages requested per section.
const DefaultTopK = 3

// Passage is one indexed chunk returned by a search.
type Passage struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string
}

// Searcher is the outbound search(document_id, query, top_k) collaborator.
// Results are ordered by relevance, most relevant first.
type Searcher interface {
	Search(ctx context.Context, documentID, query string, topK int) ([]Passage, error)
}

// Source supplies per-section context to the orchestrator. An empty string
// means no context is available.
type Source interface {
	Retrieve(ctx context.Context, sectionTitle, documentID string) string
}

// Retriever routes a section title to its static query and searches the
// document's passages.
type Retriever struct {
	searcher Searcher
	queries  map[string]string
	topK     int
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. queries maps section title to the
// semantic query used for that section; it is copied.
func NewRetriever(searcher Searcher, queries map[string]string, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := make(map[string]string, len(queries))
	for title, query := range queries {
		q[title] = query
	}
	return &Retriever{
		searcher: searcher,
		queries:  q,
		topK:     topK,
		logger:   logger,
	}
}

// Query returns the static query registered for sectionTitle.
func (r *Retriever) Query(sectionTitle string) (string, bool) {
	q, ok := r.queries[sectionTitle]
	return q, ok && strings.TrimSpace(q) != ""
}

// Retrieve returns the top passages for sectionTitle joined by blank lines,
// or "" when no query is registered, no document id is given, the search
// fails, or nothing usable comes back.
func (r *Retriever) Retrieve(ctx context.Context, sectionTitle, documentID string) string {
	query, ok := r.Query(sectionTitle)
	if !ok || documentID == "" || r.searcher == nil {
		return ""
	}

	passages, err := r.searcher.Search(ctx, documentID, query, r.topK)
	if err != nil {
		r.logger.Warn("context retrieval failed, continuing without context",
			zap.String("section", sectionTitle),
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return ""
	}

	chunks := make([]string, 0, len(passages))
	for _, p := range passages {
		if c := strings.TrimSpace(p.Content); c != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		r.logger.Debug("no context passages found",
			zap.String("section", sectionTitle),
			zap.String("document_id", documentID),
		)
		return ""
	}

	r.logger.Debug("context retrieved",
		zap.String("section", sectionTitle),
		zap.Int("passages", len(chunks)),
	)
	return strings.Join(chunks, "\n\n")
}

// WithQueries returns a copy of r that routes titles using queries.
func (r *Retriever) WithQueries(queries map[string]string) *Retriever {
	return NewRetriever(r.searcher, queries, r.topK, r.logger)
}
