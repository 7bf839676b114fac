package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// MetadataDocumentID is the metadata key scoping passages to one document.
const MetadataDocumentID = "document_id"

// DefaultCollection is used when ChromemConfig.Collection is empty.
const DefaultCollection = "memo_passages"

// ErrEmptyPassages is returned when Index is called with nothing to add.
var ErrEmptyPassages = errors.New("retrieval: no passages to index")

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChromemConfig configures the chromem-backed index.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps the index in memory.
	Path string

	// Compress enables gzip compression of persisted documents.
	Compress bool

	// Collection is the collection name.
	Collection string
}

// ChromemIndex is a Searcher over an embedded chromem-go database.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	logger     *zap.Logger
}

// NewChromemIndex opens (or creates) the index described by cfg.
func NewChromemIndex(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemIndex, error) {
	if embedder == nil {
		return nil, errors.New("retrieval: embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", cfg.Path, err)
		}
	}

	idx := &ChromemIndex{db: db, embedder: embedder, logger: logger}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, idx.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", cfg.Collection, err)
	}
	idx.collection = collection
	return idx, nil
}

func (x *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return x.embedder.EmbedQuery(ctx, text)
	}
}

// Index embeds passages and stores them under documentID. Blank passages are
// skipped. Returns the ids of the stored passages.
func (x *ChromemIndex) Index(ctx context.Context, documentID string, passages []string) ([]string, error) {
	if documentID == "" {
		return nil, errors.New("retrieval: document id is required")
	}
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		if s := strings.TrimSpace(p); s != "" {
			texts = append(texts, s)
		}
	}
	if len(texts) == 0 {
		return nil, ErrEmptyPassages
	}

	vectors, err := x.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed passages: got %d vectors for %d passages", len(vectors), len(texts))
	}

	docs := make([]chromem.Document, len(texts))
	ids := make([]string, len(texts))
	for i, text := range texts {
		ids[i] = uuid.NewString()
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   text,
			Metadata:  map[string]string{MetadataDocumentID: documentID},
			Embedding: vectors[i],
		}
	}
	// Concurrency of 1: embeddings are already computed.
	if err := x.collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("add passages: %w", err)
	}

	x.logger.Debug("indexed passages",
		zap.String("document_id", documentID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

// Search returns up to topK passages of documentID most similar to query.
func (x *ChromemIndex) Search(ctx context.Context, documentID, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("retrieval: query cannot be empty")
	}

	// chromem requires nResults <= document count.
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := x.collection.Query(ctx, query, topK, map[string]string{MetadataDocumentID: documentID}, nil)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}

	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			Metadata:   r.Metadata,
		}
	}
	return passages, nil
}

// Count returns the number of indexed passages across all documents.
func (x *ChromemIndex) Count() int {
	return x.collection.Count()
}
