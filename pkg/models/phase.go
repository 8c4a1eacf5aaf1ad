package models

import (
	"sort"
	"strings"
)

// Built-in lifecycle phase names. Products may define additional phases;
// unknown names sort after the built-in sequence, alphabetically.
const (
	PhaseIdeation       = "Ideation"
	PhaseMarketResearch = "Market Research"
	PhaseAnalysis       = "Analysis"
	PhaseStrategy       = "Strategy"
	PhaseRequirements   = "Requirements"
	PhaseDesign         = "Design"
	PhaseValidation     = "Validation"
)

// phaseRank orders the built-in lifecycle. Lookup is by lowercased name so
// stored phase names survive case drift.
var phaseRank = map[string]int{
	"ideation":        0,
	"market research": 1,
	"analysis":        2,
	"strategy":        3,
	"requirements":    4,
	"design":          5,
	"validation":      6,
}

// unknownPhaseRank places phases outside the built-in lifecycle after it.
var unknownPhaseRank = len(phaseRank)

// PhaseRank returns the position of a phase in the lifecycle sequence.
func PhaseRank(name string) int {
	if rank, ok := phaseRank[strings.ToLower(strings.TrimSpace(name))]; ok {
		return rank
	}
	return unknownPhaseRank
}

// SortPhases orders phase names by lifecycle sequence, breaking ties between
// unknown phases alphabetically so output is deterministic.
func SortPhases(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ri, rj := PhaseRank(names[i]), PhaseRank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}
