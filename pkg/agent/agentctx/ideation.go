package agentctx

import (
	"strings"

	"github.com/northstar-pm/northstar/pkg/models"
)

// ideationVocabulary is the fixed trigger list for ideation extraction. A
// user message containing any term, case-insensitively, is collected as a
// seed for downstream ideation work.
var ideationVocabulary = []string{
	"problem",
	"solution",
	"feature",
	"persona",
	"idea",
	"concept",
	"pain point",
	"use case",
	"user need",
	"workflow",
	"mvp",
	"prototype",
}

const (
	// maxIdeationSeeds bounds the seed list.
	maxIdeationSeeds = 10
	// maxSeedLen bounds one seed, in runes.
	maxSeedLen = 240
)

// ExtractIdeationSeeds scans user messages, oldest first, and collects the
// ones that voice an idea, problem or need. Assistant and system messages
// are never mined.
func ExtractIdeationSeeds(history []models.AgentMessage) []string {
	var seeds []string
	for _, msg := range history {
		if msg.Role != models.MessageRoleUser {
			continue
		}
		lower := strings.ToLower(msg.Content)
		for _, term := range ideationVocabulary {
			if strings.Contains(lower, term) {
				seeds = append(seeds, truncateSeed(msg.Content))
				break
			}
		}
		if len(seeds) >= maxIdeationSeeds {
			break
		}
	}
	return seeds
}

func truncateSeed(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxSeedLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxSeedLen])) + "..."
}
