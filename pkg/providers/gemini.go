package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

// GeminiClient adapts the Gemini API to LLMClient.
type GeminiClient struct {
	client *genai.Client
	key    string
}

// NewGeminiClient builds a client for one credential. Construction does
// not touch the network; genai validates lazily on first call.
func NewGeminiClient(key, baseURL string, httpClient *http.Client) (*GeminiClient, error) {
	cc := &genai.ClientConfig{APIKey: key}
	if httpClient != nil {
		cc.HTTPClient = httpClient
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client, key: key}, nil
}

// Provider implements LLMClient.
func (c *GeminiClient) Provider() config.ProviderType {
	return config.ProviderGemini
}

// Key implements LLMClient.
func (c *GeminiClient) Key() string {
	return c.key
}

// Complete implements LLMClient.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	contents, cfg := buildGenerateParams(req)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, c.wrapErr("completion", err)
	}

	completion := &Completion{Model: req.Model}
	if resp.UsageMetadata != nil {
		completion.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		completion.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	var content strings.Builder
	if len(resp.Candidates) > 0 {
		candidate := resp.Candidates[0]
		completion.StopReason = string(candidate.FinishReason)
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				content.WriteString(part.Text)
			}
		}
	}
	completion.Content = content.String()
	return completion, nil
}

// Stream implements LLMClient.
func (c *GeminiClient) Stream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*Completion, error) {
	contents, cfg := buildGenerateParams(req)

	completion := &Completion{Model: req.Model}
	var content strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
		if err != nil {
			return nil, c.wrapErr("stream", err)
		}
		if resp.UsageMetadata != nil {
			completion.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
			completion.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		candidate := resp.Candidates[0]
		if candidate.FinishReason != "" {
			completion.StopReason = string(candidate.FinishReason)
		}
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text == "" || part.Thought {
				continue
			}
			content.WriteString(part.Text)
			if onDelta != nil {
				onDelta(part.Text)
			}
		}
	}
	completion.Content = content.String()
	return completion, nil
}

// buildGenerateParams translates the neutral request. Gemini carries the
// system prompt in a dedicated instruction slot and knows only the
// user/model roles.
func buildGenerateParams(req CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	systemText := req.System

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		if m.Role == models.MessageRoleSystem {
			if systemText != "" {
				systemText += "\n\n"
			}
			systemText += m.Content
			continue
		}
		role := "user"
		if m.Role == models.MessageRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	if systemText != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: systemText}},
		}
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return contents, cfg
}

func (c *GeminiClient) wrapErr(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(config.ProviderGemini, op, apiErr.Code, err)
	}
	return classifyTransport(config.ProviderGemini, op, err)
}
