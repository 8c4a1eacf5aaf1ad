// Package knowledge stores product documentation as embedded vectors and
// answers similarity queries for retrieval-augmented agents. Two backends are
// supported: an embedded chromem-go store for single-node deployments and a
// remote qdrant instance over gRPC. Retrieval failures are reported through
// ErrKnowledgeUnavailable so callers can degrade to an answer without
// retrieved context instead of failing the run.
package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// ErrKnowledgeUnavailable indicates the store could not serve a similarity
// query. The knowledge agent downgrades it to a skipped retrieval.
var ErrKnowledgeUnavailable = errors.New("knowledge store unavailable")

// EmbedFunc turns text into a vector embedding. It is signature-compatible
// with chromem.EmbeddingFunc so the embedded backend can use it directly.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Metadata keys shared by both backends. product_id carries the tag used for
// product-scoped retrieval.
const (
	metaProductID = "product_id"
	metaTitle     = "title"
	metaContent   = "content"
)

// Store is a vector-backed knowledge base.
type Store interface {
	// Search returns up to topK snippets most similar to query, best first.
	// A non-empty productID constrains results to articles tagged with it.
	// An empty store or an all-filtered result set yields no snippets and
	// no error; infrastructure failures wrap ErrKnowledgeUnavailable.
	Search(ctx context.Context, query string, productID string, topK int) ([]models.KnowledgeSnippet, error)

	// Upsert indexes one article, replacing any previous version with the
	// same ID.
	Upsert(ctx context.Context, article *models.KnowledgeArticle) error

	// Delete removes one article by ID. Deleting an absent ID is not an
	// error.
	Delete(ctx context.Context, id string) error

	// Close flushes and releases backend resources.
	Close() error
}

// NewStore builds the store selected by cfg.Backend. A nil cfg uses the
// built-in defaults (embedded chromem, in memory).
func NewStore(cfg *config.KnowledgeConfig, embed EmbedFunc) (Store, error) {
	if cfg == nil {
		cfg = config.DefaultKnowledgeConfig()
	}
	if embed == nil {
		return nil, errors.New("knowledge store requires an embedding function")
	}

	switch cfg.Backend {
	case config.KnowledgeBackendQdrant:
		return NewQdrantStore(cfg, embed)
	case config.KnowledgeBackendChromem, "":
		return NewChromemStore(cfg, embed)
	default:
		return nil, fmt.Errorf("unknown knowledge backend %q", cfg.Backend)
	}
}

// collectionName applies the default collection when cfg leaves it empty.
func collectionName(cfg *config.KnowledgeConfig) string {
	if cfg.Collection != "" {
		return cfg.Collection
	}
	return config.DefaultKnowledgeConfig().Collection
}
