package agent

import (
	"context"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// DocumentSource fetches external reference documents for a query.
// Implemented by the integration service; a nil source leaves the agent
// running on conversation context alone.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, query string, reqCtx *models.RequestContext) ([]models.ExternalDocument, error)
}

// IntegrationAgent pulls documents from external systems (issue trackers,
// code repositories, wikis) into the request context before running the
// shared pipeline. Unlike the knowledge agent it never skips: a failed or
// empty fetch just means the model answers without references.
type IntegrationAgent struct {
	*BaseAgent
	source DocumentSource
}

// NewIntegrationAgent builds the integration agent. source may be nil.
func NewIntegrationAgent(deps Dependencies, source DocumentSource) *IntegrationAgent {
	return &IntegrationAgent{
		BaseAgent: NewBaseAgent(config.RoleIntegration, deps),
		source:    source,
	}
}

// Process fetches referenced documents and runs the shared pipeline.
func (a *IntegrationAgent) Process(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) (*models.AgentResponse, error) {
	return a.BaseAgent.Process(ctx, messages, a.attachDocuments(ctx, messages, reqCtx))
}

// ProcessStream is Process with incremental delivery.
func (a *IntegrationAgent) ProcessStream(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext, onDelta providers.DeltaFunc) (*models.AgentResponse, error) {
	return a.BaseAgent.ProcessStream(ctx, messages, a.attachDocuments(ctx, messages, reqCtx), onDelta)
}

// attachDocuments returns the context with fetched documents appended. On
// any failure the original context comes back unchanged.
func (a *IntegrationAgent) attachDocuments(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) *models.RequestContext {
	if a.source == nil {
		return reqCtx
	}

	var query string
	if i := models.LastUserIndex(messages); i >= 0 {
		query = messages[i].Content
	}
	if query == "" {
		return reqCtx
	}

	docs, err := a.source.FetchDocuments(ctx, query, reqCtx)
	if err != nil {
		a.logger.Warn("Document retrieval failed, continuing without references", "error", err)
		return reqCtx
	}
	if len(docs) == 0 {
		return reqCtx
	}

	enriched := reqCtx.Clone()
	if enriched == nil {
		enriched = &models.RequestContext{}
	}
	enriched.ExternalDocuments = append(enriched.ExternalDocuments, docs...)
	return enriched
}
