package knowledge

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/config"
)

func TestNewQdrantStoreDefaults(t *testing.T) {
	// The gRPC connection is lazy, so construction works without a server.
	store, err := NewQdrantStore(&config.KnowledgeConfig{}, termEmbedder("pricing"))
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "knowledge_articles", store.collection)
}

func TestNewQdrantStoreReadsAPIKeyEnv(t *testing.T) {
	t.Setenv("TEST_QDRANT_API_KEY", "qd-secret")

	store, err := NewQdrantStore(&config.KnowledgeConfig{
		Collection: "docs",
		Qdrant: &config.QdrantConfig{
			Host:      "qdrant.internal",
			Port:      7334,
			APIKeyEnv: "TEST_QDRANT_API_KEY",
			UseTLS:    true,
		},
	}, termEmbedder("pricing"))
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "docs", store.collection)
}

func TestProductFilter(t *testing.T) {
	filter := productFilter("prod-1")
	require.Len(t, filter.Must, 1)

	field := filter.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, metaProductID, field.Key)
	assert.Equal(t, "prod-1", field.Match.GetKeyword())
}

func TestConvertScoredPoints(t *testing.T) {
	points := []*qdrant.ScoredPoint{
		{
			Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "a-1"}},
			Score: 0.91,
			Payload: map[string]*qdrant.Value{
				metaContent:   {Kind: &qdrant.Value_StringValue{StringValue: "Pricing notes."}},
				metaTitle:     {Kind: &qdrant.Value_StringValue{StringValue: "Pricing"}},
				metaProductID: {Kind: &qdrant.Value_StringValue{StringValue: "prod-1"}},
				"revision":    {Kind: &qdrant.Value_IntegerValue{IntegerValue: 3}},
				"approved":    {Kind: &qdrant.Value_BoolValue{BoolValue: true}},
			},
		},
		{
			Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Num{Num: 42}},
			Score: -0.1,
		},
	}

	snippets := convertScoredPoints(points)
	require.Len(t, snippets, 2)

	first := snippets[0]
	assert.Equal(t, "a-1", first.SourceID)
	assert.Equal(t, "Pricing notes.", first.Content)
	assert.InDelta(t, 0.91, float64(first.Score), 0.001)
	assert.Equal(t, "Pricing", first.Metadata[metaTitle])
	assert.Equal(t, "prod-1", first.Metadata[metaProductID])
	assert.Equal(t, "3", first.Metadata["revision"])
	assert.Equal(t, "true", first.Metadata["approved"])
	assert.NotContains(t, first.Metadata, metaContent)

	second := snippets[1]
	assert.Equal(t, "42", second.SourceID)
	assert.Empty(t, second.Content)
	assert.Equal(t, float32(0), second.Score)
}

func TestConvertScoredPointsEmpty(t *testing.T) {
	assert.Empty(t, convertScoredPoints(nil))
}
