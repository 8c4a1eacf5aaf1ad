package agent

import (
	"context"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/knowledge"
	"github.com/northstar-pm/northstar/pkg/models"
	"github.com/northstar-pm/northstar/pkg/providers"
)

// KnowledgeAgent retrieves article snippets from the knowledge store before
// running the shared pipeline. Retrieval is scoped to the request's product;
// an empty result set or an unavailable store yields a skipped sentinel
// response without any provider call, so the coordinator can simply omit
// the knowledge contribution.
type KnowledgeAgent struct {
	*BaseAgent
	store knowledge.Store
	topK  int
}

// NewKnowledgeAgent builds the knowledge agent. A nil store is allowed and
// makes every call return the skipped sentinel.
func NewKnowledgeAgent(deps Dependencies, store knowledge.Store, topK int) *KnowledgeAgent {
	if topK <= 0 {
		topK = config.DefaultKnowledgeConfig().TopK
	}
	return &KnowledgeAgent{
		BaseAgent: NewBaseAgent(config.RoleKnowledge, deps),
		store:     store,
		topK:      topK,
	}
}

// Process retrieves matching snippets and, when any exist, runs the shared
// pipeline with the snippets attached to the request context.
func (k *KnowledgeAgent) Process(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) (*models.AgentResponse, error) {
	enriched, sentinel := k.retrieve(ctx, messages, reqCtx)
	if sentinel != nil {
		return sentinel, nil
	}
	return k.BaseAgent.Process(ctx, messages, enriched)
}

// ProcessStream is Process with incremental delivery.
func (k *KnowledgeAgent) ProcessStream(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext, onDelta providers.DeltaFunc) (*models.AgentResponse, error) {
	enriched, sentinel := k.retrieve(ctx, messages, reqCtx)
	if sentinel != nil {
		return sentinel, nil
	}
	return k.BaseAgent.ProcessStream(ctx, messages, enriched, onDelta)
}

// retrieve runs the vector search. It returns either a context enriched
// with snippets or a sentinel response explaining why the agent skipped.
func (k *KnowledgeAgent) retrieve(ctx context.Context, messages []models.AgentMessage, reqCtx *models.RequestContext) (*models.RequestContext, *models.AgentResponse) {
	if k.store == nil {
		return nil, k.skipped("knowledge store not configured")
	}

	var query string
	if i := models.LastUserIndex(messages); i >= 0 {
		query = messages[i].Content
	}
	if query == "" {
		return nil, k.skipped("no user query to search with")
	}

	var productID string
	if reqCtx != nil {
		productID = reqCtx.ProductID
	}

	snippets, err := k.store.Search(ctx, query, productID, k.topK)
	if err != nil {
		// Knowledge failures never fail the run; the agent steps aside.
		k.logger.Warn("Knowledge retrieval failed, skipping", "error", err)
		return nil, k.skipped("knowledge store unavailable")
	}
	if len(snippets) == 0 {
		return nil, k.skipped("no matching knowledge articles")
	}

	enriched := reqCtx.Clone()
	if enriched == nil {
		enriched = &models.RequestContext{}
	}
	enriched.KnowledgeSnippets = snippets
	return enriched, nil
}

func (k *KnowledgeAgent) skipped(reason string) *models.AgentResponse {
	return &models.AgentResponse{
		Role: k.role,
		Metadata: models.ResponseMetadata{
			AgentType: k.role,
			Skipped:   true,
			Reason:    reason,
		},
	}
}
