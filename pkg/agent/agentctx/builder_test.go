package agentctx

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

type fakeHistoryStore struct {
	messages []models.AgentMessage
	err      error

	lastUser    string
	lastProduct string
	lastLimit   int
}

func (f *fakeHistoryStore) ConversationHistory(_ context.Context, userID, productID string, limit int) ([]models.AgentMessage, error) {
	f.lastUser = userID
	f.lastProduct = productID
	f.lastLimit = limit
	return f.messages, f.err
}

type fakePhaseStore struct {
	outputs map[string]string
	err     error
}

func (f *fakePhaseStore) CompletedPhases(context.Context, string) (map[string]string, error) {
	return f.outputs, f.err
}

type fakeKnowledgeStore struct {
	snippets []models.KnowledgeSnippet
	err      error
}

func (f *fakeKnowledgeStore) Search(context.Context, string, string, int) ([]models.KnowledgeSnippet, error) {
	return f.snippets, f.err
}
func (f *fakeKnowledgeStore) Upsert(context.Context, *models.KnowledgeArticle) error { return nil }
func (f *fakeKnowledgeStore) Delete(context.Context, string) error                   { return nil }
func (f *fakeKnowledgeStore) Close() error                                           { return nil }

func testRequest() *models.ChatRequest {
	return &models.ChatRequest{
		Query:        "how should we price this?",
		UserID:       "user-1",
		ProductID:    "prod-1",
		PhaseName:    "Strategy",
		CurrentField: "pricing_model",
		FormData: map[string]string{
			"pricing_model": "half-typ",
			"segments":      "SMB, mid-market",
		},
		ResponseLength: config.ResponseShort,
		Extras:         map[string]string{"Team size": "4"},
	}
}

func TestBuildAssemblesAllSections(t *testing.T) {
	history := &fakeHistoryStore{messages: []models.AgentMessage{
		models.NewUserMessage("our problem is unclear pricing"),
		models.NewAssistantMessage("Tell me more."),
	}}
	phases := &fakePhaseStore{outputs: map[string]string{"Ideation": "A pricing advisor."}}
	store := &fakeKnowledgeStore{snippets: []models.KnowledgeSnippet{
		{SourceID: "a-1", Content: "Competitors charge per seat.", Score: 0.9},
	}}
	b := NewBuilder(history, phases, store, 5, config.DefaultDefaults())

	rc := b.Build(context.Background(), testRequest())

	assert.Equal(t, "user-1", rc.UserID)
	assert.Equal(t, "prod-1", rc.ProductID)
	assert.Equal(t, "Strategy", rc.PhaseName)
	assert.Equal(t, "pricing_model", rc.CurrentField)

	assert.Equal(t, map[string]string{"segments": "SMB, mid-market"}, rc.FormData)
	require.Len(t, rc.History, 2)
	assert.Equal(t, map[string]string{"Ideation": "A pricing advisor."}, rc.PreviousOutputs)
	require.Len(t, rc.KnowledgeSnippets, 1)
	assert.Equal(t, []string{"our problem is unclear pricing"}, rc.IdeationSeeds)
	assert.Equal(t, "4", rc.Extras["Team size"])
	assert.Equal(t, "pricing_model", rc.Extras["Currently editing"])
	assert.Equal(t, "short", rc.Extras["Preferred response length"])

	assert.Equal(t, "user-1", history.lastUser)
	assert.Equal(t, "prod-1", history.lastProduct)
	assert.Equal(t, historyLoadLimit, history.lastLimit)
}

func TestBuildIsIdempotent(t *testing.T) {
	history := &fakeHistoryStore{messages: []models.AgentMessage{
		models.NewUserMessage("the problem is retention"),
	}}
	phases := &fakePhaseStore{outputs: map[string]string{
		"Ideation":        "ideas",
		"Market Research": "research",
	}}
	store := &fakeKnowledgeStore{snippets: []models.KnowledgeSnippet{
		{SourceID: "a-1", Content: "Snippet.", Score: 0.5},
	}}
	b := NewBuilder(history, phases, store, 5, config.DefaultDefaults())
	req := testRequest()

	first := b.Build(context.Background(), req)
	second := b.Build(context.Background(), req)

	require.Equal(t, first, second)
}

func TestBuildPrefersCallerSuppliedHistory(t *testing.T) {
	history := &fakeHistoryStore{messages: []models.AgentMessage{
		models.NewUserMessage("stored message"),
	}}
	b := NewBuilder(history, nil, nil, 0, nil)

	req := testRequest()
	req.History = []models.AgentMessage{models.NewUserMessage("inline message")}
	rc := b.Build(context.Background(), req)

	require.Len(t, rc.History, 1)
	assert.Equal(t, "inline message", rc.History[0].Content)
	assert.Empty(t, history.lastProduct, "store should not be consulted")
}

func TestBuildDegradesOnStoreFailures(t *testing.T) {
	history := &fakeHistoryStore{err: errors.New("db down")}
	phases := &fakePhaseStore{err: errors.New("db down")}
	store := &fakeKnowledgeStore{err: errors.New("qdrant down")}
	b := NewBuilder(history, phases, store, 5, config.DefaultDefaults())

	rc := b.Build(context.Background(), testRequest())

	require.NotNil(t, rc)
	assert.Empty(t, rc.History)
	assert.Empty(t, rc.PreviousOutputs)
	assert.Empty(t, rc.KnowledgeSnippets)
	assert.Equal(t, "prod-1", rc.ProductID)
}

func TestBuildNilCollaborators(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 0, nil)

	rc := b.Build(context.Background(), testRequest())

	require.NotNil(t, rc)
	assert.Empty(t, rc.History)
	assert.Empty(t, rc.KnowledgeSnippets)
}

func TestBuildNilRequest(t *testing.T) {
	b := NewBuilder(nil, nil, nil, 0, nil)
	rc := b.Build(context.Background(), nil)
	require.NotNil(t, rc)
	assert.Empty(t, rc.ProductID)
}

func TestBuildTrimsKnowledgeToTokenBudget(t *testing.T) {
	big := strings.Repeat("pricing data and more pricing data. ", 40)
	store := &fakeKnowledgeStore{snippets: []models.KnowledgeSnippet{
		{SourceID: "a-1", Content: big, Score: 0.9},
		{SourceID: "a-2", Content: big, Score: 0.8},
	}}
	defaults := config.DefaultDefaults()
	defaults.MaxKnowledgeTokens = 40
	b := NewBuilder(nil, nil, store, 5, defaults)

	rc := b.Build(context.Background(), testRequest())

	require.Len(t, rc.KnowledgeSnippets, 1, "second snippet must not fit")
	assert.NotEmpty(t, rc.KnowledgeSnippets[0].Content)
	assert.Less(t, len(rc.KnowledgeSnippets[0].Content), len(big))
}

func TestBuildKeepsSnippetsWithinBudget(t *testing.T) {
	store := &fakeKnowledgeStore{snippets: []models.KnowledgeSnippet{
		{SourceID: "a-1", Content: "short one", Score: 0.9},
		{SourceID: "a-2", Content: "short two", Score: 0.8},
	}}
	b := NewBuilder(nil, nil, store, 5, config.DefaultDefaults())

	rc := b.Build(context.Background(), testRequest())

	assert.Len(t, rc.KnowledgeSnippets, 2)
	assert.Equal(t, "short one", rc.KnowledgeSnippets[0].Content)
}

func TestFormDataWithout(t *testing.T) {
	assert.Nil(t, formDataWithout(nil, ""))
	assert.Nil(t, formDataWithout(map[string]string{"a": "1"}, "a"))
	assert.Equal(t, map[string]string{"b": "2"},
		formDataWithout(map[string]string{"a": "1", "b": "2"}, "a"))
}
