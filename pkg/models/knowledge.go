package models

// KnowledgeSnippet is one retrieved fragment from the knowledge store.
type KnowledgeSnippet struct {
	// SourceID identifies the article the fragment came from.
	SourceID string `json:"source_id,omitempty"`

	Content string `json:"content"`

	// Score is retrieval similarity in 0..1, higher is closer.
	Score float32 `json:"score"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// KnowledgeArticle is a stored document, chunked and embedded at ingest.
type KnowledgeArticle struct {
	ID        string            `json:"id"`
	ProductID string            `json:"product_id,omitempty"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
