// Package agentctx assembles the per-request context agents run against.
// The builder pulls conversation history, completed phase outputs and
// knowledge snippets through narrow read interfaces and produces one
// immutable RequestContext. Building twice from identical inputs yields
// byte-identical context; persistence failures degrade to a sparser
// context rather than failing the request.
package agentctx

import (
	"context"
	"log/slog"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/knowledge"
	"github.com/northstar-pm/northstar/pkg/models"
)

// historyLoadLimit bounds how much stored conversation one build pulls.
const historyLoadLimit = 50

// HistoryStore loads stored conversation history.
type HistoryStore interface {
	// ConversationHistory returns up to limit messages for the user and
	// product, oldest first.
	ConversationHistory(ctx context.Context, userID, productID string, limit int) ([]models.AgentMessage, error)
}

// PhaseStore loads completed lifecycle phase outputs.
type PhaseStore interface {
	// CompletedPhases maps each completed phase name to its stored output:
	// the submitted form data plus any generated artifact.
	CompletedPhases(ctx context.Context, productID string) (map[string]string, error)
}

// Builder assembles RequestContexts. Every collaborator is optional; a nil
// store simply leaves its part of the context empty.
type Builder struct {
	history   HistoryStore
	phases    PhaseStore
	knowledge knowledge.Store
	topK      int
	defaults  *config.Defaults
	counter   *TokenCounter
	logger    *slog.Logger
}

// NewBuilder creates a context builder. topK <= 0 selects the default
// retrieval depth.
func NewBuilder(history HistoryStore, phases PhaseStore, store knowledge.Store, topK int, defaults *config.Defaults) *Builder {
	if topK <= 0 {
		topK = config.DefaultKnowledgeConfig().TopK
	}
	if defaults == nil {
		defaults = config.DefaultDefaults()
	}
	return &Builder{
		history:   history,
		phases:    phases,
		knowledge: store,
		topK:      topK,
		defaults:  defaults,
		counter:   NewTokenCounter(),
		logger:    slog.With("component", "context_builder"),
	}
}

// Build assembles the context for one request. It never fails: a broken
// store costs its section of the context and a warning, nothing more.
func (b *Builder) Build(ctx context.Context, req *models.ChatRequest) *models.RequestContext {
	if req == nil {
		return &models.RequestContext{}
	}

	rc := &models.RequestContext{
		UserID:       req.UserID,
		ProductID:    req.ProductID,
		PhaseName:    req.PhaseName,
		CurrentField: req.CurrentField,
	}
	rc.FormData = formDataWithout(req.FormData, req.CurrentField)
	rc.History = b.loadHistory(ctx, req)
	rc.PreviousOutputs = b.loadPhases(ctx, req.ProductID)
	rc.KnowledgeSnippets = b.loadKnowledge(ctx, req)
	rc.IdeationSeeds = ExtractIdeationSeeds(rc.History)
	rc.Extras = buildExtras(req)
	return rc
}

// formDataWithout copies form data minus the field the user is editing, so
// agents never echo a half-typed value back.
func formDataWithout(formData map[string]string, currentField string) map[string]string {
	if len(formData) == 0 {
		return nil
	}
	out := make(map[string]string, len(formData))
	for k, v := range formData {
		if k == currentField {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// loadHistory prefers caller-supplied history; otherwise it reads storage.
func (b *Builder) loadHistory(ctx context.Context, req *models.ChatRequest) []models.AgentMessage {
	if len(req.History) > 0 {
		out := make([]models.AgentMessage, len(req.History))
		copy(out, req.History)
		return out
	}
	if b.history == nil || req.ProductID == "" {
		return nil
	}

	history, err := b.history.ConversationHistory(ctx, req.UserID, req.ProductID, historyLoadLimit)
	if err != nil {
		b.logger.Warn("History load failed, building context without it", "error", err)
		return nil
	}
	if len(history) == 0 {
		return nil
	}
	return history
}

func (b *Builder) loadPhases(ctx context.Context, productID string) map[string]string {
	if b.phases == nil || productID == "" {
		return nil
	}

	outputs, err := b.phases.CompletedPhases(ctx, productID)
	if err != nil {
		b.logger.Warn("Phase output load failed, building context without previous phases", "error", err)
		return nil
	}
	if len(outputs) == 0 {
		return nil
	}
	return outputs
}

func (b *Builder) loadKnowledge(ctx context.Context, req *models.ChatRequest) []models.KnowledgeSnippet {
	if b.knowledge == nil || req.Query == "" {
		return nil
	}

	snippets, err := b.knowledge.Search(ctx, req.Query, req.ProductID, b.topK)
	if err != nil {
		b.logger.Warn("Knowledge retrieval failed, building context without snippets", "error", err)
		return nil
	}
	return b.trimToBudget(snippets)
}

// trimToBudget keeps snippets, best first, while they fit MaxKnowledgeTokens.
// When even the first snippet exceeds the whole budget it is truncated
// rather than dropped, so the strongest match always survives.
func (b *Builder) trimToBudget(snippets []models.KnowledgeSnippet) []models.KnowledgeSnippet {
	budget := b.defaults.MaxKnowledgeTokens
	if budget <= 0 || len(snippets) == 0 {
		return snippets
	}

	var kept []models.KnowledgeSnippet
	remaining := budget
	for _, snippet := range snippets {
		n := b.counter.Count(snippet.Content)
		if n > remaining {
			if len(kept) == 0 {
				snippet.Content = b.counter.Truncate(snippet.Content, remaining)
				kept = append(kept, snippet)
			}
			break
		}
		kept = append(kept, snippet)
		remaining -= n
	}
	return kept
}

// buildExtras merges caller extras with the editing-state hints agents
// should see.
func buildExtras(req *models.ChatRequest) map[string]string {
	extras := make(map[string]string, len(req.Extras)+2)
	for k, v := range req.Extras {
		extras[k] = v
	}
	if req.CurrentField != "" {
		extras["Currently editing"] = req.CurrentField
	}
	if req.ResponseLength != "" {
		extras["Preferred response length"] = string(req.ResponseLength)
	}
	if len(extras) == 0 {
		return nil
	}
	return extras
}
