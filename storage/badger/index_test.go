package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/datagen/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *VectorIndex {
	t.Helper()
	idx, err := NewMemoryVectorIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func entry(id string, vec ...float32) storage.IndexEntry {
	return storage.IndexEntry{
		ID:          id,
		Vector:      vec,
		ProductName: "product " + id,
		Sentiment:   "Neutral",
		Document:    "review " + id,
	}
}

func TestGetCollection_NotFound(t *testing.T) {
	idx := newTestIndex(t)

	_, err := idx.GetCollection(context.Background(), "missing_product_reviews")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = idx.Query(context.Background(), "missing_product_reviews", []float32{1}, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetOrCreateCollection_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	c1, err := idx.GetOrCreateCollection(ctx, "Bicycles_product_reviews", storage.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, 0, c1.Dimension)

	require.NoError(t, idx.Upsert(ctx, c1.Name, []storage.IndexEntry{entry("review_0", 1, 0, 0)}))

	c2, err := idx.GetOrCreateCollection(ctx, "Bicycles_product_reviews", storage.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, 3, c2.Dimension)
	assert.Equal(t, 1, c2.Count)
}

func TestUpsert_OverwritesByID(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	name := "Bicycles_product_reviews"
	_, err := idx.GetOrCreateCollection(ctx, name, storage.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, name, []storage.IndexEntry{
		entry("review_0", 1, 0),
		entry("review_1", 0, 1),
	}))

	replacement := entry("review_0", 0, 1)
	replacement.Document = "replaced"
	require.NoError(t, idx.Upsert(ctx, name, []storage.IndexEntry{replacement}))

	col, err := idx.GetCollection(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, col.Count)

	matches, err := idx.Query(ctx, name, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "review_0", matches[0].Entry.ID)
	assert.Equal(t, "replaced", matches[0].Entry.Document)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	name := "Bicycles_product_reviews"
	_, err := idx.GetOrCreateCollection(ctx, name, storage.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, name, []storage.IndexEntry{entry("review_0", 1, 0, 0)}))

	err = idx.Upsert(ctx, name, []storage.IndexEntry{entry("review_1", 1, 0)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	// Nothing from the failed batch is visible.
	col, err := idx.GetCollection(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, col.Count)
}

func TestUpsert_UnknownCollection(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.Upsert(context.Background(), "nope", []storage.IndexEntry{entry("a", 1)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestQuery_OrderingAndTopK(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	name := "Bicycles_product_reviews"
	_, err := idx.GetOrCreateCollection(ctx, name, storage.MetricCosine)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, name, []storage.IndexEntry{
		entry("far", 0, 0, 1),
		entry("near", 1, 0, 0),
		entry("mid", 0.7, 0.7, 0),
		entry("tie_b", 0, 1, 0),
		entry("tie_a", 0, 1, 0),
	}))

	matches, err := idx.Query(ctx, name, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 5)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Entry.ID
		if i > 0 {
			assert.GreaterOrEqual(t, m.Distance, matches[i-1].Distance)
		}
		assert.GreaterOrEqual(t, m.Distance, float32(0))
	}
	assert.Equal(t, []string{"near", "mid", "far", "tie_a", "tie_b"}, ids)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)

	top2, err := idx.Query(ctx, name, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, top2, 2)

	// Repeated queries return the same ranking.
	again, err := idx.Query(ctx, name, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, matches, again)
}

func TestQuery_InvalidTopK(t *testing.T) {
	idx := newTestIndex(t)
	_, err := idx.Query(context.Background(), "x", []float32{1}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestCollections_Isolated(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for _, name := range []string{"Bike_product_reviews", "Bikes_product_reviews"} {
		_, err := idx.GetOrCreateCollection(ctx, name, storage.MetricCosine)
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(ctx, name, []storage.IndexEntry{entry(name, 1, 0)}))
	}

	matches, err := idx.Query(ctx, "Bike_product_reviews", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Bike_product_reviews", matches[0].Entry.ID)
}

func TestDeleteCollection(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	name := "Bicycles_product_reviews"
	_, err := idx.GetOrCreateCollection(ctx, name, storage.MetricCosine)
	require.NoError(t, err)

	entries := make([]storage.IndexEntry, 2500)
	for i := range entries {
		entries[i] = entry(fmt.Sprintf("review_%d", i), 1, float32(i))
	}
	require.NoError(t, idx.Upsert(ctx, name, entries))

	col, err := idx.GetCollection(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2500, col.Count)

	require.NoError(t, idx.DeleteCollection(ctx, name))
	_, err = idx.GetCollection(ctx, name)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, idx.DeleteCollection(ctx, name), storage.ErrNotFound)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(1), cosineDistance([]float32{0, 0}, []float32{1, 0}))
}
