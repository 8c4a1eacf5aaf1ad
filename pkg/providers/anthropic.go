package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// anthropicDefaultMaxTokens caps completions when the caller sets no
// limit. The Messages API requires max_tokens on every request.
const anthropicDefaultMaxTokens = 4096

// AnthropicClient adapts the Messages API to LLMClient.
type AnthropicClient struct {
	client sdk.Client
	key    string
}

// NewAnthropicClient builds a client for one credential.
func NewAnthropicClient(key, baseURL string, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &AnthropicClient{client: sdk.NewClient(opts...), key: key}
}

// Provider implements LLMClient.
func (c *AnthropicClient) Provider() config.ProviderType {
	return config.ProviderAnthropic
}

// Key implements LLMClient.
func (c *AnthropicClient) Key() string {
	return c.key
}

// Complete implements LLMClient.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	msg, err := c.client.Messages.New(ctx, buildMessageParams(req))
	if err != nil {
		return nil, c.wrapErr("completion", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	return &Completion{
		Content:      content.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}, nil
}

// Stream implements LLMClient.
func (c *AnthropicClient) Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*Completion, error) {
	stream := c.client.Messages.NewStreaming(ctx, buildMessageParams(req))
	defer stream.Close()

	completion := &Completion{Model: req.Model}
	var content strings.Builder
	for stream.Next() {
		switch ev := stream.Current().AsAny().(type) {
		case sdk.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
				content.WriteString(delta.Text)
				if onDelta != nil {
					onDelta(delta.Text)
				}
			}
		case sdk.MessageDeltaEvent:
			completion.InputTokens = int(ev.Usage.InputTokens)
			completion.OutputTokens = int(ev.Usage.OutputTokens)
			completion.StopReason = string(ev.Delta.StopReason)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, c.wrapErr("stream", err)
	}
	completion.Content = content.String()
	return completion, nil
}

// buildMessageParams translates the neutral request. System text travels
// in the dedicated system field; system-role conversation entries are
// folded into it.
func buildMessageParams(req CompletionRequest) sdk.MessageNewParams {
	system := make([]sdk.TextBlockParam, 0, 1)
	if req.System != "" {
		system = append(system, sdk.TextBlockParam{Text: req.System})
	}

	conversation := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case models.MessageRoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case models.MessageRoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(float64(req.Temperature))
	}
	return params
}

func (c *AnthropicClient) wrapErr(op string, err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(config.ProviderAnthropic, op, apiErr.StatusCode, err)
	}
	return classifyTransport(config.ProviderAnthropic, op, err)
}
