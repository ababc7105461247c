package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const upsertBatchSize = 128

// QdrantConfig configures the Qdrant index.
type QdrantConfig struct {
	// URL is the gRPC address in "host:port" form (e.g. "localhost:6334").
	URL string

	// APIKey is optional.
	APIKey string

	// Collection is the collection name (default: "shl_assessments").
	Collection string
}

// QdrantIndex implements Index using Qdrant
type QdrantIndex struct {
	client   *qdrant.Client
	embedder Embedder
	name     string
}

// NewQdrantIndex creates a new Qdrant index client
func NewQdrantIndex(cfg QdrantConfig, embedder Embedder) (*QdrantIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}

	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		// If no port specified, assume default
		host = cfg.URL
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        host,
		Port:        port,
		APIKey:      cfg.APIKey,
		GrpcOptions: []grpc.DialOption{grpc.WithUserAgent("recommender")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	name := cfg.Collection
	if name == "" {
		name = DefaultCollection
	}

	return &QdrantIndex{client: client, embedder: embedder, name: name}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

// Query embeds text and performs similarity search
func (s *QdrantIndex) Query(ctx context.Context, text string, n int) ([]Hit, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(n)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify("failed to search", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		hit := Hit{
			Distance: 1 - point.Score,
			Metadata: make(map[string]string),
		}

		for k, v := range point.Payload {
			switch k {
			case payloadAssessmentID:
				hit.ID = v.GetStringValue()
			case payloadDocument:
				hit.Document = v.GetStringValue()
			default:
				hit.Metadata[k] = v.GetStringValue()
			}
		}
		if hit.ID == "" {
			hit.ID = pointIDString(point.Id)
		}

		hits = append(hits, hit)
	}

	return hits, nil
}

// Upsert embeds documents and writes them in batches
func (s *QdrantIndex) Upsert(ctx context.Context, docs []Document) error {
	for start := 0; start < len(docs); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(docs))
		if err := s.upsertBatch(ctx, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *QdrantIndex) upsertBatch(ctx context.Context, docs []Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		payload := map[string]*qdrant.Value{
			payloadAssessmentID: qdrant.NewValueString(d.ID),
			payloadDocument:     qdrant.NewValueString(d.Content),
		}
		for k, v := range d.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(d.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return classify("failed to upsert points", err)
	}
	return nil
}

// Reset deletes the collection if present and creates it again
func (s *QdrantIndex) Reset(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.name)
	if err != nil {
		return classify("failed to check collection existence", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.name); err != nil {
			return classify("failed to delete collection", err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.embedder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify("failed to create collection", err)
	}
	return nil
}

// Count returns the exact number of points in the collection
func (s *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, classify("failed to count points", err)
	}
	return int(n), nil
}

// pointID maps numeric corpus IDs to numeric points and everything else to
// a stable UUID.
func pointID(id string) *qdrant.PointId {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// classify wraps err, tagging transport failures with ErrUnavailable and
// missing collections with ErrCollectionNotFound.
func classify(msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%s: %w: %v", msg, ErrUnavailable, err)
	case codes.NotFound:
		return fmt.Errorf("%s: %w: %v", msg, ErrCollectionNotFound, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// Ensure QdrantIndex implements Index
var _ Index = (*QdrantIndex)(nil)
