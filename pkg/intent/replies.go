package intent

import "fmt"

// negativeReply is the text streamed back when the user declined to
// continue. The phase-specific variant keeps the user anchored in the
// lifecycle phase they were working on.
func negativeReply(phaseName string) string {
	if phaseName != "" {
		return fmt.Sprintf("Got it! We can set that aside for now. Whenever you're ready to continue with the %s phase, just ask and I can suggest next steps or summarise what we have so far.", phaseName)
	}
	return "Got it! We can set that aside for now. Whenever you're ready, ask me anything about your product and we can pick up from there."
}

// emptyReply is the text streamed back for an empty turn.
func emptyReply(phaseName string) string {
	if phaseName != "" {
		return fmt.Sprintf("I didn't catch that. What would you like to work on in the %s phase?", phaseName)
	}
	return "I didn't catch that. What would you like to work on?"
}
