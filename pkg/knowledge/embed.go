package knowledge

import (
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/northstar-pm/northstar/pkg/config"
)

// NewOpenAIEmbedder returns an EmbedFunc backed by the OpenAI embeddings API.
// An empty model falls back to the configured default embedding model.
func NewOpenAIEmbedder(apiKey, model string) EmbedFunc {
	if model == "" {
		model = config.DefaultKnowledgeConfig().Embedding.Model
	}
	return EmbedFunc(chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI(model)))
}

// ResolveEmbedder builds the embedding function named by cfg. apiKey is the
// provider key resolved through the provider registry; an empty key is
// accepted so the store can still be constructed, in which case every
// retrieval fails and is downgraded to a skipped lookup.
func ResolveEmbedder(cfg *config.EmbeddingConfig, apiKey string) (EmbedFunc, error) {
	provider := config.ProviderOpenAI
	model := ""
	if cfg != nil {
		if cfg.Provider != "" {
			provider = cfg.Provider
		}
		model = cfg.Model
	}

	switch provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(apiKey, model), nil
	default:
		return nil, fmt.Errorf("embedding provider %q not supported", provider)
	}
}
