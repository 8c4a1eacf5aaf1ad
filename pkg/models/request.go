package models

import (
	"github.com/northstar-pm/northstar/pkg/config"
)

// ChatRequest is an orchestration request as submitted by a caller,
// either directly or through the async job queue.
type ChatRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`

	// PhaseName is the lifecycle phase the user is working in
	// (e.g. "Ideation", "Market Research", "Requirements").
	PhaseName string `json:"phase_name,omitempty"`

	// CurrentField is set when the user asks for help while editing a
	// specific form field; it triggers the phase-form fast path.
	CurrentField string `json:"current_field,omitempty"`

	// FormData holds the current phase's form fields.
	FormData map[string]string `json:"form_data,omitempty"`

	// History is the recent conversation, oldest first. When empty the
	// context builder loads it from storage.
	History []AgentMessage `json:"history,omitempty"`

	// PrimaryRole forces the primary agent, bypassing routing.
	PrimaryRole config.AgentRole `json:"primary_role,omitempty"`

	// ModelTier overrides the default tier for this request.
	ModelTier config.ModelTier `json:"model_tier,omitempty"`

	// ResponseLength overrides the default answer-size bound.
	ResponseLength config.ResponseLength `json:"response_length,omitempty"`

	// Extras carries caller-supplied context lines attached verbatim.
	Extras map[string]string `json:"extras,omitempty"`
}

// RequestContext is the assembled, immutable context for one orchestration
// run. Built once by the context builder; agents read it, never write it.
type RequestContext struct {
	UserID    string `json:"user_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	PhaseName string `json:"phase_name,omitempty"`

	// CurrentField names the form field being edited, excluded from the
	// form-data section so agents don't echo a half-typed value back.
	CurrentField string `json:"current_field,omitempty"`

	// FormData holds current phase form fields (CurrentField removed).
	FormData map[string]string `json:"form_data,omitempty"`

	// History is the conversation, oldest first.
	History []AgentMessage `json:"history,omitempty"`

	// PreviousOutputs maps earlier lifecycle phases to their stored outputs,
	// ordered by phase sequence when rendered.
	PreviousOutputs map[string]string `json:"previous_outputs,omitempty"`

	// KnowledgeSnippets are retrieved article fragments for this query.
	KnowledgeSnippets []KnowledgeSnippet `json:"knowledge_snippets,omitempty"`

	// ExternalDocuments are integration-fetched references for this query.
	ExternalDocuments []ExternalDocument `json:"external_documents,omitempty"`

	// IdeationSeeds are problem/solution/feature/persona fragments mined
	// from user messages.
	IdeationSeeds []string `json:"ideation_seeds,omitempty"`

	// Extras carries caller-supplied context lines.
	Extras map[string]string `json:"extras,omitempty"`
}

// HasPhase reports whether the request is bound to a lifecycle phase.
func (rc *RequestContext) HasPhase() bool {
	return rc != nil && rc.PhaseName != ""
}

// Clone returns a deep copy. Useful when a caller must derive a variant
// context without touching the original.
func (rc *RequestContext) Clone() *RequestContext {
	if rc == nil {
		return nil
	}
	clone := *rc
	clone.FormData = copyStringMap(rc.FormData)
	clone.Extras = copyStringMap(rc.Extras)
	clone.PreviousOutputs = copyStringMap(rc.PreviousOutputs)
	if rc.History != nil {
		clone.History = make([]AgentMessage, len(rc.History))
		copy(clone.History, rc.History)
	}
	if rc.KnowledgeSnippets != nil {
		clone.KnowledgeSnippets = make([]KnowledgeSnippet, len(rc.KnowledgeSnippets))
		copy(clone.KnowledgeSnippets, rc.KnowledgeSnippets)
	}
	if rc.ExternalDocuments != nil {
		clone.ExternalDocuments = make([]ExternalDocument, len(rc.ExternalDocuments))
		copy(clone.ExternalDocuments, rc.ExternalDocuments)
	}
	if rc.IdeationSeeds != nil {
		clone.IdeationSeeds = make([]string, len(rc.IdeationSeeds))
		copy(clone.IdeationSeeds, rc.IdeationSeeds)
	}
	return &clone
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	copied := make(map[string]string, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}
