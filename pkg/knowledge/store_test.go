package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
)

func TestNewStoreDefaultsToChromem(t *testing.T) {
	store, err := NewStore(nil, termEmbedder("pricing"))
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &ChromemStore{}, store)
}

func TestNewStoreSelectsBackend(t *testing.T) {
	store, err := NewStore(&config.KnowledgeConfig{Backend: config.KnowledgeBackendQdrant}, termEmbedder("pricing"))
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &QdrantStore{}, store)
}

func TestNewStoreUnknownBackend(t *testing.T) {
	_, err := NewStore(&config.KnowledgeConfig{Backend: "weaviate"}, termEmbedder("pricing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weaviate")
}

func TestNewStoreRequiresEmbedder(t *testing.T) {
	_, err := NewStore(nil, nil)
	assert.Error(t, err)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "knowledge_articles", collectionName(&config.KnowledgeConfig{}))
	assert.Equal(t, "docs", collectionName(&config.KnowledgeConfig{Collection: "docs"}))
}

func TestResolveEmbedder(t *testing.T) {
	embed, err := ResolveEmbedder(nil, "sk-test")
	require.NoError(t, err)
	assert.NotNil(t, embed)

	embed, err = ResolveEmbedder(&config.EmbeddingConfig{
		Provider: config.ProviderOpenAI,
		Model:    "text-embedding-3-large",
	}, "sk-test")
	require.NoError(t, err)
	assert.NotNil(t, embed)

	_, err = ResolveEmbedder(&config.EmbeddingConfig{Provider: config.ProviderAnthropic}, "sk-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic")
}
