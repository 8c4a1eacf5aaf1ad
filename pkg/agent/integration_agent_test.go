package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/models"
)

type fakeDocumentSource struct {
	docs []models.ExternalDocument
	err  error

	lastQuery string
}

func (f *fakeDocumentSource) FetchDocuments(_ context.Context, query string, _ *models.RequestContext) ([]models.ExternalDocument, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

func TestIntegrationAgentAttachesDocuments(t *testing.T) {
	h := newHarness(t)
	source := &fakeDocumentSource{docs: []models.ExternalDocument{
		{Title: "PAY-142", URL: "https://tracker.example.com/PAY-142", Source: "jira",
			Content: "Checkout fails for SEPA payments."},
	}}
	agent := NewIntegrationAgent(h.deps, source)

	reqCtx := &models.RequestContext{ProductID: "prod-1"}
	resp, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("summarise the open jira issues")}, reqCtx)

	require.NoError(t, err)
	assert.Equal(t, "summarise the open jira issues", source.lastQuery)
	assert.Contains(t, resp.Metadata.SystemPrompt, "## Referenced Documents")
	assert.Contains(t, resp.Metadata.SystemPrompt, "PAY-142 (jira)")
	assert.Contains(t, resp.Metadata.SystemPrompt, "Checkout fails for SEPA payments.")
	assert.Contains(t, resp.Metadata.SystemContext, "Referenced documents: 1")

	// The caller's context never gains the documents.
	assert.Empty(t, reqCtx.ExternalDocuments)
}

func TestIntegrationAgentFetchFailureStillAnswers(t *testing.T) {
	h := newHarness(t)
	agent := NewIntegrationAgent(h.deps, &fakeDocumentSource{err: errors.New("mcp server unreachable")})

	resp, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("check the wiki")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "synthesised answer", resp.Content)
	assert.NotContains(t, resp.Metadata.SystemPrompt, "## Referenced Documents")
	require.Len(t, h.script.recorded(), 1)
}

func TestIntegrationAgentNilSourceRunsPlainPipeline(t *testing.T) {
	h := newHarness(t)
	agent := NewIntegrationAgent(h.deps, nil)

	resp, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("what integrations exist?")}, nil)

	require.NoError(t, err)
	assert.False(t, resp.Metadata.Skipped)
	require.Len(t, h.script.recorded(), 1)
}

func TestIntegrationAgentEmptyFetchLeavesContextUnchanged(t *testing.T) {
	h := newHarness(t)
	source := &fakeDocumentSource{}
	agent := NewIntegrationAgent(h.deps, source)

	resp, err := agent.Process(context.Background(),
		[]models.AgentMessage{models.NewUserMessage("pull referenced docs")}, nil)

	require.NoError(t, err)
	assert.NotContains(t, resp.Metadata.SystemPrompt, "## Referenced Documents")
}
