package models

import "time"

// Product is one product under management. The core reads products to
// scope history, phase outputs and knowledge retrieval; ownership of the
// rows stays with the product workspace that writes them.
type Product struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LifecyclePhase is one step of the product lifecycle as stored, with its
// position in the sequence.
type LifecyclePhase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Order       int    `json:"order"`
	Description string `json:"description,omitempty"`
}

// ConversationEntry is one stored conversation turn. AgentName is set for
// assistant turns so stored history records which agent answered.
type ConversationEntry struct {
	ProductID string            `json:"product_id"`
	UserID    string            `json:"user_id,omitempty"`
	Role      MessageRole       `json:"role"`
	Content   string            `json:"content"`
	AgentName string            `json:"agent_name,omitempty"`
	PhaseID   string            `json:"phase_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
