package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/philippgille/chromem-go"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// ChromemStore is the embedded backend. Vectors live in process memory with
// optional directory persistence, so it needs no external services and is the
// default for single-node deployments.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

// NewChromemStore opens the embedded store. A non-empty cfg.Path persists
// every write under that directory and reloads it on the next start; an empty
// path keeps all vectors in memory.
func NewChromemStore(cfg *config.KnowledgeConfig, embed EmbedFunc) (*ChromemStore, error) {
	logger := slog.With("component", "knowledge_store", "backend", "chromem")

	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("open knowledge store at %q: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := collectionName(cfg)
	col, err := db.GetOrCreateCollection(name, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("open collection %q: %w", name, err)
	}

	logger.Info("Knowledge store ready",
		"collection", name,
		"documents", col.Count(),
		"persistent", cfg.Path != "")

	return &ChromemStore{db: db, collection: col, logger: logger}, nil
}

// Search embeds the query through the collection's embedding function and
// returns the closest articles by cosine similarity.
func (s *ChromemStore) Search(ctx context.Context, query string, productID string, topK int) ([]models.KnowledgeSnippet, error) {
	if topK <= 0 {
		return nil, nil
	}

	// chromem rejects result counts above the document count, so clamp
	// before querying. Zero documents means zero snippets, not an error.
	if n := s.collection.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	var where map[string]string
	if productID != "" {
		where = map[string]string{metaProductID: productID}
	}

	results, err := s.collection.Query(ctx, query, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w: %v", ErrKnowledgeUnavailable, err)
	}

	snippets := make([]models.KnowledgeSnippet, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		snippets = append(snippets, models.KnowledgeSnippet{
			SourceID: r.ID,
			Content:  r.Content,
			Score:    clampScore(r.Similarity),
			Metadata: metadata,
		})
	}
	return snippets, nil
}

// Upsert indexes one article. The collection computes the embedding from the
// article content, so a failing embedding function fails the upsert.
func (s *ChromemStore) Upsert(ctx context.Context, article *models.KnowledgeArticle) error {
	doc := chromem.Document{
		ID:       article.ID,
		Content:  article.Content,
		Metadata: articleMetadata(article),
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("index article %q: %w", article.ID, err)
	}
	return nil
}

// Delete removes one article by ID.
func (s *ChromemStore) Delete(ctx context.Context, id string) error {
	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete article %q: %w", id, err)
	}
	return nil
}

// Close is a no-op: the embedded store persists incrementally on every write.
func (s *ChromemStore) Close() error {
	return nil
}

// articleMetadata flattens an article into the stored metadata map. Reserved
// keys win over user-supplied metadata of the same name.
func articleMetadata(article *models.KnowledgeArticle) map[string]string {
	metadata := make(map[string]string, len(article.Metadata)+2)
	for k, v := range article.Metadata {
		metadata[k] = v
	}
	if article.Title != "" {
		metadata[metaTitle] = article.Title
	}
	if article.ProductID != "" {
		metadata[metaProductID] = article.ProductID
	}
	return metadata
}

// clampScore keeps similarity scores in the documented 0..1 range. Cosine
// similarity of unrelated embeddings can dip below zero.
func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	return score
}

var _ Store = (*ChromemStore)(nil)
