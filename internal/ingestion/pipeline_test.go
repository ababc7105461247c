package ingestion

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/vectorstore"
)

type recordingIndex struct {
	resets    int
	batches   [][]vectorstore.Document
	upsertErr error
}

func (r *recordingIndex) Query(context.Context, string, int) ([]vectorstore.Hit, error) {
	return nil, nil
}

func (r *recordingIndex) Upsert(_ context.Context, docs []vectorstore.Document) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.batches = append(r.batches, docs)
	return nil
}

func (r *recordingIndex) Reset(context.Context) error {
	r.resets++
	r.batches = nil
	return nil
}

func (r *recordingIndex) Count(context.Context) (int, error) {
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n, nil
}

func (r *recordingIndex) Close() error { return nil }

func assessments(n int) []catalog.Assessment {
	out := make([]catalog.Assessment, n)
	for i := range out {
		out[i] = catalog.Assessment{
			ID:          fmt.Sprint(i),
			Name:        fmt.Sprintf("Assessment %d", i),
			URL:         fmt.Sprintf("https://example.com/products/a-%d/", i),
			TestType:    "['Knowledge & Skills']",
			Description: "Measures things.",
		}
	}
	return out
}

func TestFocusedText(t *testing.T) {
	a := catalog.Assessment{
		Name:        "Core Java (Advanced Level)",
		TestType:    "['Knowledge & Skills']",
		Description: strings.Repeat("ü", 250),
	}

	got := FocusedText(a)
	assert.True(t, strings.HasPrefix(got, "Name: Core Java (Advanced Level). Type: ['Knowledge & Skills']. Description: "))
	assert.True(t, strings.HasSuffix(got, strings.Repeat("ü", DescriptionPrefix)))
	assert.NotContains(t, got, strings.Repeat("ü", DescriptionPrefix+1))

	short := FocusedText(catalog.Assessment{Name: "SQL", TestType: "x", Description: "Short."})
	assert.Equal(t, "Name: SQL. Type: x. Description: Short.", short)
}

func TestDocuments(t *testing.T) {
	docs := Documents(assessments(2))
	require.Len(t, docs, 2)
	assert.Equal(t, "1", docs[1].ID)
	assert.Equal(t, "https://example.com/products/a-1/", docs[1].Metadata[catalog.KeyURL])
	assert.Equal(t, "Measures things.", docs[1].Metadata[catalog.KeyDescription])
}

func TestRebuild_Batches(t *testing.T) {
	idx := &recordingIndex{}
	p := NewPipeline(idx, PipelineConfig{BatchSize: 4})

	stats, err := p.Rebuild(context.Background(), assessments(10))
	require.NoError(t, err)

	assert.Equal(t, 1, idx.resets)
	require.Len(t, idx.batches, 3)
	assert.Len(t, idx.batches[2], 2)
	assert.Equal(t, 10, stats.Assessments)
	assert.Equal(t, 10, stats.Indexed)
	assert.Equal(t, 3, stats.Batches)
	assert.Len(t, stats.CorpusHash, 64)

	again, err := p.Rebuild(context.Background(), assessments(10))
	require.NoError(t, err)
	assert.Equal(t, stats.CorpusHash, again.CorpusHash)
	assert.Equal(t, 10, again.Indexed)
}

func TestRebuild_Errors(t *testing.T) {
	_, err := NewPipeline(&recordingIndex{}, PipelineConfig{}).Rebuild(context.Background(), nil)
	assert.Error(t, err)

	boom := errors.New("disk full")
	_, err = NewPipeline(&recordingIndex{upsertErr: boom}, PipelineConfig{}).Rebuild(context.Background(), assessments(3))
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewPipeline(&recordingIndex{}, PipelineConfig{}).Rebuild(ctx, assessments(3))
	assert.ErrorIs(t, err, context.Canceled)
}

type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,()[]'")))
		v[h.Sum32()%64]++
	}
	v[63] += 0.01
	return v, nil
}

func (e wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (wordEmbedder) Dimension() int { return 64 }

func TestRebuild_ChromemRoundTrip(t *testing.T) {
	idx, err := vectorstore.NewChromemIndex(vectorstore.ChromemConfig{}, wordEmbedder{}, nil)
	require.NoError(t, err)

	corpus := `name,url,description,duration,test_type,remote_support,adaptive_support
Core Java,https://example.com/products/core-java/,Java programming language knowledge,20,['Knowledge & Skills'],Yes,No
OPQ Personality,https://example.com/products/opq32r/,Workplace personality and behavior,25,['Personality & Behavior'],Yes,No
Numerical Reasoning,https://example.com/products/verify-numerical/,Numbers charts and data,18,['Ability & Aptitude'],Yes,Yes
`
	items, err := catalog.ReadCorpus(strings.NewReader(corpus))
	require.NoError(t, err)

	stats, err := NewPipeline(idx, PipelineConfig{}).Rebuild(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)

	hits, err := idx.Query(context.Background(), "Core Java programming", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "0", hits[0].ID)
	assert.Equal(t, "Core Java", hits[0].Metadata[catalog.KeyName])
	assert.Equal(t, "Yes", hits[0].Metadata[catalog.KeyRemoteSupport])
	assert.True(t, strings.HasPrefix(hits[0].Document, "Name: Core Java."))
}
