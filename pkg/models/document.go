package models

// ExternalDocument is a reference document fetched from an integration
// source (issue tracker, code repository, wiki) for inclusion in context.
type ExternalDocument struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}
