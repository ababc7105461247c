package vectorstore

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// wordEmbedder hashes words into a small bag-of-words vector.
type wordEmbedder struct{}

const wordDims = 32

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, wordDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%wordDims]++
	}
	v[wordDims-1] += 0.01 // never all-zero
	return v, nil
}

func (e wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (wordEmbedder) Dimension() int { return wordDims }

func newTestChromem(t *testing.T) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex(ChromemConfig{}, wordEmbedder{}, nil)
	require.NoError(t, err)
	return idx
}

func TestNewChromemIndex_RequiresEmbedder(t *testing.T) {
	_, err := NewChromemIndex(ChromemConfig{}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestChromemIndex_QueryMissingCollection(t *testing.T) {
	idx := newTestChromem(t)

	_, err := idx.Query(context.Background(), "java", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollectionNotFound))

	_, err = idx.Count(context.Background())
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
}

func TestChromemIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)
	require.NoError(t, idx.Reset(ctx))

	docs := []Document{
		{ID: "0", Content: "java programming language test", Metadata: map[string]string{"name": "Java 8", "url": "https://x.com/view/java-8-new/"}},
		{ID: "1", Content: "teamwork personality questionnaire", Metadata: map[string]string{"name": "OPQ32r", "url": "https://x.com/view/opq32r/"}},
		{ID: "2", Content: "numerical reasoning ability", Metadata: map[string]string{"name": "Verify Numerical", "url": "https://x.com/view/verify-numerical/"}},
	}
	require.NoError(t, idx.Upsert(ctx, docs))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := idx.Query(ctx, "java programming language test", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3, "n is capped at the collection size")

	assert.Equal(t, "0", hits[0].ID)
	assert.Equal(t, "Java 8", hits[0].Metadata["name"])
	assert.Equal(t, "java programming language test", hits[0].Document)
	assert.NotContains(t, hits[0].Metadata, payloadAssessmentID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-4)

	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestChromemIndex_ResetClearsDocuments(t *testing.T) {
	ctx := context.Background()
	idx := newTestChromem(t)
	require.NoError(t, idx.Reset(ctx))
	require.NoError(t, idx.Upsert(ctx, []Document{{ID: "0", Content: "a b c"}}))

	require.NoError(t, idx.Reset(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	hits, err := idx.Query(ctx, "a b c", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChromemIndex_QueryValidation(t *testing.T) {
	idx := newTestChromem(t)

	_, err := idx.Query(context.Background(), "java", 0)
	assert.Error(t, err)

	_, err = idx.Query(context.Background(), "   ", 3)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	err := classify("search", status.Error(codes.Unavailable, "connection refused"))
	assert.True(t, errors.Is(err, ErrUnavailable))

	err = classify("search", status.Error(codes.NotFound, "collection missing"))
	assert.True(t, errors.Is(err, ErrCollectionNotFound))

	err = classify("search", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	err = classify("search", errors.New("boom"))
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "boom")
}

func TestPointID(t *testing.T) {
	assert.Equal(t, uint64(42), pointID("42").GetNum())

	u := pointID("assessment-x").GetUuid()
	assert.NotEmpty(t, u)
	assert.Equal(t, u, pointID("assessment-x").GetUuid())
	assert.Equal(t, "42", pointIDString(pointID("42")))
	assert.Equal(t, u, pointIDString(pointID("assessment-x")))
}
