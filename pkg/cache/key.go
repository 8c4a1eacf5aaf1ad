// Package cache provides the response cache consulted before every provider
// call. Keys are deterministic digests of the request's semantic content;
// backends (Redis or in-process memory) expire entries by TTL. Cache failures
// are soft: read errors count as misses and writes are fire-and-forget.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// keyMessage is a message reduced to its cache-relevant fields. Timestamps
// are deliberately absent: two identical conversations at different times
// must produce the same key.
type keyMessage struct {
	Role    models.MessageRole `json:"role"`
	Content string             `json:"content"`
}

// keyEnvelope is the canonical JSON form hashed into a cache key. Field
// order is fixed by the struct; map keys are sorted by encoding/json. User
// identifiers are excluded so identical requests share entries across users.
type keyEnvelope struct {
	Role      config.AgentRole  `json:"role"`
	Tier      config.ModelTier  `json:"tier"`
	Messages  []keyMessage      `json:"messages"`
	ProductID string            `json:"product_id"`
	PhaseName string            `json:"phase_name"`
	FormData  map[string]string `json:"form_data"`
}

// Key computes the deterministic cache key for one agent invocation: a
// SHA-256 hex digest over the role, tier, the last historyLimit messages
// (roles and content only) and the normalised context subset.
func Key(role config.AgentRole, tier config.ModelTier, messages []models.AgentMessage, rc *models.RequestContext, historyLimit int) string {
	if historyLimit > 0 && len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}

	env := keyEnvelope{
		Role:     role,
		Tier:     tier,
		Messages: make([]keyMessage, len(messages)),
	}
	for i, msg := range messages {
		env.Messages[i] = keyMessage{Role: msg.Role, Content: msg.Content}
	}
	if rc != nil {
		env.ProductID = rc.ProductID
		env.PhaseName = rc.PhaseName
		env.FormData = rc.FormData
	}

	// Marshalling a fixed struct cannot fail.
	data, _ := json.Marshal(env)
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
