package notify

import (
	"fmt"
	"time"
	"unicode/utf8"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

var statusEmoji = map[string]string{
	"completed": ":white_check_mark:",
	"failed":    ":x:",
	"cancelled": ":no_entry_sign:",
}

var statusLabel = map[string]string{
	"completed": "Job Completed",
	"failed":    "Job Failed",
	"cancelled": "Job Cancelled",
}

func jobURL(jobID, dashboardURL string) string {
	return fmt.Sprintf("%s/jobs/%s", dashboardURL, jobID)
}

// BuildJobMessage creates Block Kit blocks for a terminal job notification.
func BuildJobMessage(input JobFinishedInput, dashboardURL string) []goslack.Block {
	emoji := statusEmoji[input.Status]
	if emoji == "" {
		emoji = ":question:"
	}
	label := statusLabel[input.Status]
	if label == "" {
		label = "Job " + input.Status
	}

	header := fmt.Sprintf("%s *%s* (took %s)", emoji, label, formatElapsed(input.Elapsed))

	var blocks []goslack.Block

	switch {
	case input.Status == "completed" && input.Answer != "":
		blocks = append(blocks, markdownSection(header))
		blocks = append(blocks, markdownSection(truncateForSlack(input.Answer)))
	case input.ErrorMessage != "":
		header += fmt.Sprintf("\n\n*Error:*\n%s", truncateForSlack(input.ErrorMessage))
		blocks = append(blocks, markdownSection(header))
	default:
		blocks = append(blocks, markdownSection(header))
	}

	buttonText := "View Answer"
	if input.Status != "completed" {
		buttonText = "View Details"
	}
	btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, buttonText, false, false))
	btn.URL = jobURL(input.JobID, dashboardURL)
	blocks = append(blocks, goslack.NewActionBlock("", btn))

	return blocks
}

func markdownSection(text string) goslack.Block {
	return goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
		nil, nil,
	)
}

// formatElapsed rounds to whole seconds; sub-second jobs show as "<1s"
// rather than "0s".
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}

// truncateForSlack caps text at maxBlockTextLength runes (Slack counts
// characters, not bytes) without splitting a multi-byte rune.
func truncateForSlack(text string) string {
	if utf8.RuneCountInString(text) <= maxBlockTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated — view the full answer in the dashboard)_"
}
