package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/datagen/ai/mock"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_ReadBackMatchesDirect(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.NewReviewRepository(ctx, filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	defer repo.Close()

	// Older rows for the same topic must not be picked up.
	_, err = repo.InsertReviews(ctx, "Bicycles", []core.Record{
		{ProductName: "Old", ReviewText: "Old review.", Sentiment: core.SentimentNeutral},
	})
	require.NoError(t, err)

	stored, err := repo.InsertReviews(ctx, "Bicycles", []core.Record{
		{ProductName: "A", ReviewText: "First.", Sentiment: core.SentimentPositive},
		{ProductName: "B", ReviewText: "Second.", Sentiment: core.SentimentNegative},
	})
	require.NoError(t, err)

	emb := mock.NewMockEmbedder()
	readBack, err := NewEmbedder(repo, emb, true, nil)
	require.NoError(t, err)
	direct, err := NewEmbedder(repo, emb, false, nil)
	require.NoError(t, err)

	a, err := readBack.Embed(ctx, "Bicycles", stored)
	require.NoError(t, err)
	b, err := direct.Embed(ctx, "Bicycles", stored)
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, "B", a[0].Row.ProductName)
	assert.Equal(t, "A", a[1].Row.ProductName)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	emb := mock.NewMockEmbedder()
	e, err := NewEmbedder(nil, emb, false, nil)
	require.NoError(t, err)

	out, err := e.Embed(context.Background(), "Bicycles", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, emb.CallCount())
}

func TestEmbedder_BadProviderOutput(t *testing.T) {
	rows := []core.StoredRecord{
		{ID: 1, Record: core.Record{ProductName: "A", ReviewText: "x", Sentiment: core.SentimentPositive}},
		{ID: 2, Record: core.Record{ProductName: "B", ReviewText: "y", Sentiment: core.SentimentPositive}},
	}

	tests := []struct {
		name    string
		vectors [][]float32
	}{
		{"count mismatch", [][]float32{{1, 0}}},
		{"empty vector", [][]float32{{1, 0}, {}}},
		{"mixed dimensions", [][]float32{{1, 0}, {1, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := mock.NewMockEmbedder()
			emb.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
				return tt.vectors, nil
			}
			e, err := NewEmbedder(nil, emb, false, nil)
			require.NoError(t, err)

			_, err = e.EmbedRows(context.Background(), rows)
			assert.ErrorIs(t, err, core.ErrEmbedding)
		})
	}
}

func TestNewEmbedder_Requirements(t *testing.T) {
	_, err := NewEmbedder(nil, nil, false, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewEmbedder(nil, mock.NewMockEmbedder(), true, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}
