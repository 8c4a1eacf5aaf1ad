package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/northstar-pm/northstar/pkg/config"
	"github.com/northstar-pm/northstar/pkg/models"
)

const qdrantDefaultPort = 6334 // gRPC port

// QdrantStore is the remote backend, talking to a qdrant instance over gRPC.
// It serves deployments where the knowledge base outgrows a single process or
// must be shared between replicas.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	embed      EmbedFunc
	logger     *slog.Logger
}

// NewQdrantStore connects to the configured qdrant instance. The gRPC
// connection is lazy, so an unreachable server surfaces on the first query
// rather than here.
func NewQdrantStore(cfg *config.KnowledgeConfig, embed EmbedFunc) (*QdrantStore, error) {
	qc := cfg.Qdrant
	if qc == nil {
		qc = &config.QdrantConfig{}
	}

	host := qc.Host
	if host == "" {
		host = "localhost"
	}
	port := qc.Port
	if port == 0 {
		port = qdrantDefaultPort
	}
	var apiKey string
	if qc.APIKeyEnv != "" {
		apiKey = strings.TrimSpace(os.Getenv(qc.APIKeyEnv))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: qc.UseTLS,
		GrpcOptions: []grpc.DialOption{
			// Similarity queries are bursty; keepalives stop idle gateways
			// from silently dropping the connection between bursts.
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                30 * time.Second,
				Timeout:             10 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client for %s:%d: %w", host, port, err)
	}

	logger := slog.With("component", "knowledge_store", "backend", "qdrant")
	logger.Info("Knowledge store ready",
		"collection", collectionName(cfg),
		"host", host,
		"port", port,
		"tls", qc.UseTLS)

	return &QdrantStore{
		client:     client,
		collection: collectionName(cfg),
		embed:      embed,
		logger:     logger,
	}, nil
}

// Search embeds the query locally and runs a similarity search on the remote
// collection. A missing collection or unreachable server is reported as
// ErrKnowledgeUnavailable.
func (s *QdrantStore) Search(ctx context.Context, query string, productID string, topK int) ([]models.KnowledgeSnippet, error) {
	if topK <= 0 {
		return nil, nil
	}

	vector, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %v", ErrKnowledgeUnavailable, err)
	}

	request := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if productID != "" {
		request.Filter = productFilter(productID)
	}

	response, err := s.client.GetPointsClient().Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w: %v", ErrKnowledgeUnavailable, err)
	}

	return convertScoredPoints(response.Result), nil
}

// Upsert indexes one article, creating the collection on first use with the
// embedding dimension observed from the article vector.
func (s *QdrantStore) Upsert(ctx context.Context, article *models.KnowledgeArticle) error {
	vector, err := s.embed(ctx, article.Content)
	if err != nil {
		return fmt.Errorf("embed article %q: %w", article.ID, err)
	}

	if err := s.ensureCollection(ctx, uint64(len(vector))); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value)
	metadata := articleMetadata(article)
	metadata[metaContent] = article.Content
	for key, value := range metadata {
		val, err := qdrant.NewValue(value)
		if err != nil {
			return fmt.Errorf("payload value %q: %w", key, err)
		}
		payload[key] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(article.ID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("index article %q: %w", article.ID, err)
	}
	return nil
}

// Delete removes one article by ID.
func (s *QdrantStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{
						{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete article %q: %w", id, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// ensureCollection creates the collection if it does not exist yet. A
// concurrent creation by another replica is tolerated.
func (s *QdrantStore) ensureCollection(ctx context.Context, dimension uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	s.logger.Info("Created knowledge collection", "collection", s.collection, "dimension", dimension)
	return nil
}

// productFilter restricts a search to points tagged with the given product.
func productFilter(productID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: metaProductID,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: productID},
						},
					},
				},
			},
		},
	}
}

// convertScoredPoints maps qdrant search results to snippets. The article
// content travels in the payload and is lifted out of the metadata map.
func convertScoredPoints(points []*qdrant.ScoredPoint) []models.KnowledgeSnippet {
	snippets := make([]models.KnowledgeSnippet, 0, len(points))
	for _, point := range points {
		var id string
		if point.Id != nil {
			switch idType := point.Id.PointIdOptions.(type) {
			case *qdrant.PointId_Uuid:
				id = idType.Uuid
			case *qdrant.PointId_Num:
				id = strconv.FormatUint(idType.Num, 10)
			}
		}

		metadata := make(map[string]string, len(point.Payload))
		for key, value := range point.Payload {
			switch v := value.Kind.(type) {
			case *qdrant.Value_StringValue:
				metadata[key] = v.StringValue
			case *qdrant.Value_IntegerValue:
				metadata[key] = strconv.FormatInt(v.IntegerValue, 10)
			case *qdrant.Value_DoubleValue:
				metadata[key] = strconv.FormatFloat(v.DoubleValue, 'f', -1, 64)
			case *qdrant.Value_BoolValue:
				metadata[key] = strconv.FormatBool(v.BoolValue)
			}
		}

		content := metadata[metaContent]
		delete(metadata, metaContent)

		snippets = append(snippets, models.KnowledgeSnippet{
			SourceID: id,
			Content:  content,
			Score:    clampScore(point.Score),
			Metadata: metadata,
		})
	}
	return snippets
}

var _ Store = (*QdrantStore)(nil)
