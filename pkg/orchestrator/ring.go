package orchestrator

import (
	"sync"

	"github.com/northstar-pm/northstar/pkg/models"
)

// defaultInteractionHistory bounds the cross-run interaction log.
const defaultInteractionHistory = 100

// interactionRing is a bounded append-only log of agent interactions. Once
// full, new entries overwrite the oldest. One mutex guards everything;
// snapshots copy so callers never observe later writes.
type interactionRing struct {
	mu   sync.Mutex
	buf  []models.Interaction
	next int
	full bool
}

func newInteractionRing(capacity int) *interactionRing {
	if capacity <= 0 {
		capacity = defaultInteractionHistory
	}
	return &interactionRing{buf: make([]models.Interaction, capacity)}
}

func (r *interactionRing) Add(interactions ...models.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range interactions {
		r.buf[r.next] = in
		r.next = (r.next + 1) % len(r.buf)
		if r.next == 0 {
			r.full = true
		}
	}
}

// Snapshot returns the retained interactions, oldest first.
func (r *interactionRing) Snapshot() []models.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]models.Interaction, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]models.Interaction, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Len reports how many interactions are currently retained.
func (r *interactionRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
