package config

// QdrantConfig holds connection settings for a remote qdrant instance.
type QdrantConfig struct {
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"` // gRPC port, default 6334
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	UseTLS    bool   `yaml:"use_tls,omitempty"`
}

// EmbeddingConfig selects the embedding model used to index and query
// knowledge articles. The embedding provider key is resolved through the
// provider registry at startup.
type EmbeddingConfig struct {
	Provider ProviderType `yaml:"provider,omitempty"`
	Model    string       `yaml:"model,omitempty"`
}

// KnowledgeConfig contains knowledge store configuration.
type KnowledgeConfig struct {
	// Backend selects the vector store implementation.
	Backend KnowledgeBackend `yaml:"backend,omitempty"`

	// Collection is the vector collection holding knowledge articles.
	Collection string `yaml:"collection,omitempty"`

	// TopK is the number of snippets retrieved per query.
	TopK int `yaml:"top_k,omitempty" validate:"omitempty,min=1"`

	// Path is the persistence directory for the embedded backend.
	// Empty keeps the store purely in memory.
	Path string `yaml:"path,omitempty"`

	Qdrant    *QdrantConfig    `yaml:"qdrant,omitempty"`
	Embedding *EmbeddingConfig `yaml:"embedding,omitempty"`
}

// DefaultKnowledgeConfig returns the built-in knowledge store defaults.
func DefaultKnowledgeConfig() *KnowledgeConfig {
	return &KnowledgeConfig{
		Backend:    KnowledgeBackendChromem,
		Collection: "knowledge_articles",
		TopK:       5,
		Embedding: &EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
	}
}
