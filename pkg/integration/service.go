package integration

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/northstar-pm/northstar/pkg/agent"
	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/metrics"
	"github.com/northstar-pm/northstar/pkg/models"
)

// Compile-time check that Service implements agent.DocumentSource.
var _ agent.DocumentSource = (*Service)(nil)

const (
	// maxInlineURLs bounds how many URLs referenced in a single query are fetched.
	maxInlineURLs = 3

	// maxDocumentChars bounds how much of a document lands in the request
	// context. Prompt assembly trims further by token budget.
	maxDocumentChars = 8000
)

// searchToolHints are matched against tool names, in preference order, to
// find the document-search tool a server exposes.
var searchToolHints = []string{"search", "query", "find", "lookup"}

// Service resolves external reference material for a query: URLs mentioned
// in the query text are fetched directly (allow-listed domains, GitHub blob
// URLs normalised to raw), and every configured MCP server is asked through
// its search tool. Results are attached to the request context as documents.
type Service struct {
	mcp       *MCPClient
	fetcher   *Fetcher
	cache     *Cache
	registry  *config.MCPServerRegistry
	docs      *config.DocumentSourcesConfig
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewService creates the integration service.
// token is the resolved document-source token (empty = unauthenticated).
// collector may be nil (tool-call metrics disabled).
func NewService(registry *config.MCPServerRegistry, docs *config.DocumentSourcesConfig, token string, collector *metrics.Collector) *Service {
	cacheTTL := 1 * time.Minute
	if docs != nil && docs.CacheTTL > 0 {
		cacheTTL = time.Duration(docs.CacheTTL)
	}

	return &Service{
		mcp:       NewMCPClient(registry),
		fetcher:   NewFetcher(token),
		cache:     NewCache(cacheTTL),
		registry:  registry,
		docs:      docs,
		collector: collector,
		logger:    slog.Default(),
	}
}

// FetchDocuments gathers reference documents for a query from direct URLs
// and configured MCP servers. Sources fail independently: a dead server or
// rejected URL is logged and skipped. An error comes back only when nothing
// could be fetched and at least one source failed.
func (s *Service) FetchDocuments(ctx context.Context, query string, reqCtx *models.RequestContext) ([]models.ExternalDocument, error) {
	attached := attachedURLs(reqCtx)

	var docs []models.ExternalDocument
	var lastErr error

	// 1. URLs referenced directly in the query.
	for _, rawURL := range ExtractURLs(query, maxInlineURLs) {
		if _, dup := attached[rawURL]; dup {
			continue
		}
		doc, err := s.fetchURL(ctx, rawURL)
		if err != nil {
			lastErr = err
			s.logger.Warn("Document fetch failed", "url", rawURL, "error", err)
			continue
		}
		docs = append(docs, doc)
	}

	// 2. Search every configured MCP server.
	for _, serverID := range s.serverIDs() {
		doc, ok, err := s.searchServer(ctx, serverID, query)
		if err != nil {
			lastErr = err
			s.logger.Warn("MCP document search failed", "server", serverID, "error", err)
			continue
		}
		if ok {
			docs = append(docs, doc)
		}
	}

	if len(docs) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return docs, nil
}

// MCP returns the underlying MCP client (health checks, test wiring).
func (s *Service) MCP() *MCPClient {
	return s.mcp
}

// Close shuts down MCP sessions and transports.
func (s *Service) Close() error {
	return s.mcp.Close()
}

// fetchURL validates, downloads (with caching), and wraps one URL.
func (s *Service) fetchURL(ctx context.Context, rawURL string) (models.ExternalDocument, error) {
	var allowedDomains []string
	if s.docs != nil {
		allowedDomains = s.docs.AllowedDomains
	}
	if err := ValidateDocumentURL(rawURL, allowedDomains); err != nil {
		return models.ExternalDocument{}, err
	}

	// Cache key: normalized URL, shared with repeated fetches of the same blob.
	normalizedURL := ConvertToRawURL(rawURL)
	content, ok := s.cache.Get(normalizedURL)
	if !ok {
		fetched, err := s.fetcher.Download(ctx, rawURL)
		if err != nil {
			return models.ExternalDocument{}, err
		}
		content = fetched
		s.cache.Set(normalizedURL, content)
	}

	return models.ExternalDocument{
		Title:   TitleForURL(rawURL),
		URL:     rawURL,
		Source:  hostOf(rawURL),
		Content: truncateContent(content),
	}, nil
}

// searchServer asks one MCP server's search tool for material on the query.
// Returns ok=false (no error) when the server has no search-shaped tool or
// the search comes back empty.
func (s *Service) searchServer(ctx context.Context, serverID, query string) (models.ExternalDocument, bool, error) {
	if err := s.mcp.EnsureServer(ctx, serverID); err != nil {
		return models.ExternalDocument{}, false, err
	}

	tools, err := s.mcp.ListTools(ctx, serverID)
	if err != nil {
		return models.ExternalDocument{}, false, err
	}

	tool := searchToolFor(tools)
	if tool == nil {
		s.logger.Debug("MCP server exposes no search tool, skipping",
			"server", serverID, "tools", len(tools))
		return models.ExternalDocument{}, false, nil
	}

	if s.collector != nil {
		s.collector.RecordToolCalls(config.RoleIntegration, 1)
	}

	result, err := s.mcp.CallTool(ctx, serverID, tool.Name, map[string]any{"query": query})
	if err != nil {
		return models.ExternalDocument{}, false, err
	}
	if result.IsError {
		return models.ExternalDocument{}, false, fmt.Errorf("tool %q on %q returned an error: %s",
			tool.Name, serverID, extractTextContent(result))
	}

	text := extractTextContent(result)
	if strings.TrimSpace(text) == "" {
		return models.ExternalDocument{}, false, nil
	}

	// Server instructions ride along so the model knows how to treat the material.
	if serverCfg, cfgErr := s.registry.Get(serverID); cfgErr == nil && serverCfg.Instructions != "" {
		text = serverCfg.Instructions + "\n\n" + text
	}

	return models.ExternalDocument{
		Title:   fmt.Sprintf("%s results", serverID),
		Source:  serverID,
		Content: truncateContent(text),
	}, true, nil
}

// serverIDs returns configured MCP server IDs in stable order.
func (s *Service) serverIDs() []string {
	if s.registry == nil {
		return nil
	}
	ids := s.registry.ServerIDs()
	slices.Sort(ids)
	return ids
}

// searchToolFor picks the server's search tool: the first tool whose name
// contains a hint, hints tried in preference order.
func searchToolFor(tools []*mcpsdk.Tool) *mcpsdk.Tool {
	for _, hint := range searchToolHints {
		for _, tool := range tools {
			if strings.Contains(strings.ToLower(tool.Name), hint) {
				return tool
			}
		}
	}
	return nil
}

// extractTextContent extracts text from an MCP CallToolResult.
// Concatenates all TextContent items; non-text content (images, embedded
// resources) is skipped.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// attachedURLs indexes the URLs of documents already on the request context
// so repeated references are not fetched twice.
func attachedURLs(reqCtx *models.RequestContext) map[string]struct{} {
	if reqCtx == nil || len(reqCtx.ExternalDocuments) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(reqCtx.ExternalDocuments))
	for _, doc := range reqCtx.ExternalDocuments {
		if doc.URL != "" {
			set[doc.URL] = struct{}{}
		}
	}
	return set
}

func truncateContent(content string) string {
	if len(content) <= maxDocumentChars {
		return content
	}
	return content[:maxDocumentChars] + "\n[truncated]"
}

func hostOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rest := rawURL[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return rawURL
}
