package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalIndexEntry(t *testing.T) {
	entry := &IndexEntry{
		ID:          "review_0",
		Vector:      []float32{0.1, -0.2, 0.3, 0.4},
		ProductName: "Trail Blazer 500",
		Sentiment:   "Positive",
		Document:    "Smooth shifting on steep climbs, 世界 ok.",
	}

	data := MarshalIndexEntry(entry)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalIndexEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestMarshalIndexEntry_EmptyVector(t *testing.T) {
	decoded, err := UnmarshalIndexEntry(MarshalIndexEntry(&IndexEntry{ID: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "x", decoded.ID)
	assert.Empty(t, decoded.Vector)
}

func TestUnmarshalIndexEntry_Truncated(t *testing.T) {
	data := MarshalIndexEntry(&IndexEntry{
		ID:       "review_1",
		Vector:   make([]float32, 16),
		Document: "text",
	})

	for _, cut := range []int{0, 3, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalIndexEntry(data[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestMarshalUnmarshalCollection(t *testing.T) {
	c := &Collection{Name: "Bicycles_product_reviews", Metric: MetricCosine, Dimension: 384, Count: 12}

	decoded, err := UnmarshalCollection(MarshalCollection(c))
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	_, err = UnmarshalCollection(nil)
	assert.Error(t, err)
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("insert", nil))

	err := WrapError("insert", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "storage: insert: record not found", err.Error())
}
