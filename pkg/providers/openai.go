package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// OpenAIClient adapts the Chat Completions API to LLMClient.
type OpenAIClient struct {
	client *openai.Client
	key    string
}

// NewOpenAIClient builds a client for one credential. baseURL overrides
// the API endpoint when non-empty; httpClient carries the TLS settings.
func NewOpenAIClient(key, baseURL string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), key: key}
}

// Provider implements LLMClient.
func (c *OpenAIClient) Provider() config.ProviderType {
	return config.ProviderOpenAI
}

// Key implements LLMClient.
func (c *OpenAIClient) Key() string {
	return c.key
}

// Complete implements LLMClient.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, buildChatRequest(req, false))
	if err != nil {
		return nil, c.wrapErr("completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, classifyTransport(config.ProviderOpenAI, "completion", errors.New("response contained no choices"))
	}
	return &Completion{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   string(resp.Choices[0].FinishReason),
	}, nil
}

// Stream implements LLMClient.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*Completion, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, buildChatRequest(req, true))
	if err != nil {
		return nil, c.wrapErr("stream", err)
	}
	defer stream.Close()

	completion := &Completion{Model: req.Model}
	var content strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, c.wrapErr("stream", err)
		}
		if resp.Usage != nil {
			completion.InputTokens = resp.Usage.PromptTokens
			completion.OutputTokens = resp.Usage.CompletionTokens
		}
		if len(resp.Choices) == 0 {
			continue
		}
		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			completion.StopReason = string(choice.FinishReason)
		}
		if delta := choice.Delta.Content; delta != "" {
			content.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}
	completion.Content = content.String()
	return completion, nil
}

// buildChatRequest translates the neutral request. Reasoning models
// (o-series and gpt-5) reject max_tokens and non-default temperature, so
// the cap moves to max_completion_tokens and temperature is pinned to 1.
func buildChatRequest(req CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case models.MessageRoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case models.MessageRoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	if isReasoningModel(req.Model) {
		if req.MaxTokens > 0 {
			out.MaxCompletionTokens = req.MaxTokens
		}
		out.Temperature = 1.0
	} else {
		if req.MaxTokens > 0 {
			out.MaxTokens = req.MaxTokens
		}
		out.Temperature = req.Temperature
	}
	return out
}

// isReasoningModel reports whether the model requires the reasoning-era
// request shape (o-series and gpt-5 families).
func isReasoningModel(model string) bool {
	lower := strings.ToLower(model)
	switch lower {
	case "o1", "o3", "o4", "gpt-5":
		return true
	}
	for _, prefix := range []string{"o1-", "o3-", "o4-", "gpt-5-"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (c *OpenAIClient) wrapErr(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(config.ProviderOpenAI, op, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(config.ProviderOpenAI, op, reqErr.HTTPStatusCode, err)
	}
	return classifyTransport(config.ProviderOpenAI, op, err)
}
