package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/recommender/internal/catalog"
	"github.com/knoguchi/recommender/internal/metrics"
	"github.com/knoguchi/recommender/internal/vectorstore"
)

type fakeIndex struct {
	calls   int
	queryFn func(ctx context.Context, text string, n int) ([]vectorstore.Hit, error)
}

func (f *fakeIndex) Query(ctx context.Context, text string, n int) ([]vectorstore.Hit, error) {
	f.calls++
	return f.queryFn(ctx, text, n)
}

func hit(id, name string, dist float32) vectorstore.Hit {
	return vectorstore.Hit{
		ID:       id,
		Distance: dist,
		Document: "Name: " + name,
		Metadata: map[string]string{
			catalog.KeyName:     name,
			catalog.KeyURL:      "https://example.com/products/" + name + "/",
			catalog.KeyTestType: "['Knowledge & Skills']",
		},
	}
}

func TestSearch_OrdersAndDedupes(t *testing.T) {
	idx := &fakeIndex{queryFn: func(_ context.Context, text string, n int) ([]vectorstore.Hit, error) {
		assert.Equal(t, "java developer", text)
		assert.Equal(t, 5, n)
		return []vectorstore.Hit{
			hit("2", "core-java", 0.4),
			hit("1", "java-8", 0.1),
			hit("2", "core-java", 0.4),
			hit("3", "spring", 0.4),
		}, nil
	}}

	got := New(idx).Search(context.Background(), "  java developer ", 5)
	require.Len(t, got, 3)
	assert.Equal(t, "java-8", got[0].Name)
	assert.Equal(t, "core-java", got[1].Name)
	assert.Equal(t, "spring", got[2].Name)
	assert.Equal(t, "Name: java-8", got[0].Document)
	assert.InDelta(t, 0.1, got[0].Distance, 1e-6)
}

func TestSearch_InvalidInput(t *testing.T) {
	idx := &fakeIndex{queryFn: func(context.Context, string, int) ([]vectorstore.Hit, error) {
		t.Fatal("index must not be queried")
		return nil, nil
	}}
	r := New(idx)

	assert.Empty(t, r.Search(context.Background(), "   ", 10))
	assert.Empty(t, r.Search(context.Background(), "java", 0))
	assert.Empty(t, New(nil).Search(context.Background(), "java", 10))
}

func TestSearch_FailuresDegradeToEmpty(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	failing := &fakeIndex{queryFn: func(context.Context, string, int) ([]vectorstore.Hit, error) {
		return nil, vectorstore.ErrUnavailable
	}}
	got := New(failing, WithMetrics(m)).Search(context.Background(), "java", 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalFailures.WithLabelValues(reasonIndexError)))

	slow := &fakeIndex{queryFn: func(ctx context.Context, _ string, _ int) ([]vectorstore.Hit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	got = New(slow, WithMetrics(m), WithTimeout(20*time.Millisecond)).Search(context.Background(), "java", 10)
	assert.Empty(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalFailures.WithLabelValues(reasonTimeout)))
}

func TestSearch_DropsMalformedHits(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	idx := &fakeIndex{queryFn: func(context.Context, string, int) ([]vectorstore.Hit, error) {
		bad := hit("9", "broken", 0.05)
		delete(bad.Metadata, catalog.KeyURL)
		return []vectorstore.Hit{bad, hit("1", "java-8", 0.1)}, nil
	}}

	got := New(idx, WithMetrics(m)).Search(context.Background(), "java", 10)
	require.Len(t, got, 1)
	assert.Equal(t, "java-8", got[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalFailures.WithLabelValues(reasonMalformedHit)))
}

func TestSearch_Cache(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := expirable.NewLRU[string, catalog.RankedList](16, nil, time.Minute)

	fail := false
	idx := &fakeIndex{queryFn: func(context.Context, string, int) ([]vectorstore.Hit, error) {
		if fail {
			return nil, errors.New("down")
		}
		return []vectorstore.Hit{hit("1", "java-8", 0.1)}, nil
	}}
	r := New(idx, WithCache(store), WithMetrics(m))

	first := r.Search(context.Background(), "java", 10)
	require.Len(t, first, 1)

	// mutating a returned list must not leak into the cache
	first[0].Name = "mutated"

	fail = true
	second := r.Search(context.Background(), "java", 10)
	require.Len(t, second, 1)
	assert.Equal(t, "java-8", second[0].Name)
	assert.Equal(t, 1, idx.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits))

	// different depth is a different key; failures are not cached
	assert.Empty(t, r.Search(context.Background(), "java", 5))
	assert.Equal(t, 2, idx.calls)
}

func TestSearch_CacheExpires(t *testing.T) {
	store := expirable.NewLRU[string, catalog.RankedList](16, nil, 20*time.Millisecond)
	idx := &fakeIndex{queryFn: func(context.Context, string, int) ([]vectorstore.Hit, error) {
		return []vectorstore.Hit{hit("1", "java-8", 0.1)}, nil
	}}
	r := New(idx, WithCache(store))

	require.Len(t, r.Search(context.Background(), "java", 10), 1)
	require.Len(t, r.Search(context.Background(), "java", 10), 1)
	assert.Equal(t, 1, idx.calls)

	time.Sleep(60 * time.Millisecond)
	require.Len(t, r.Search(context.Background(), "java", 10), 1)
	assert.Equal(t, 2, idx.calls)
}

func TestSearch_CacheEvictsLeastRecent(t *testing.T) {
	store := expirable.NewLRU[string, catalog.RankedList](1, nil, time.Minute)
	idx := &fakeIndex{queryFn: func(_ context.Context, text string, _ int) ([]vectorstore.Hit, error) {
		return []vectorstore.Hit{hit("1", text, 0.1)}, nil
	}}
	r := New(idx, WithCache(store))

	r.Search(context.Background(), "java", 10)
	r.Search(context.Background(), "python", 10)
	assert.Equal(t, 1, store.Len())

	r.Search(context.Background(), "java", 10)
	assert.Equal(t, 3, idx.calls)
}
