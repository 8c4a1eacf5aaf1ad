package models

import "time"

// Interaction records one agent-to-agent exchange during an orchestration
// run: who asked, who answered, with what, and how the answer was produced.
type Interaction struct {
	From      string           `json:"from"`
	To        string           `json:"to"`
	Query     string           `json:"query"`
	Response  string           `json:"response"`
	Metadata  ResponseMetadata `json:"metadata"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewInteraction stamps an exchange with the current UTC time.
func NewInteraction(from, to, query, response string, meta ResponseMetadata) Interaction {
	return Interaction{
		From:      from,
		To:        to,
		Query:     query,
		Response:  response,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}
