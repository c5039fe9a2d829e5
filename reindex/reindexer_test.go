package reindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/datagen/ai/mock"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/pipeline"
	"github.com/poiesic/datagen/storage"
	"github.com/poiesic/datagen/storage/badger"
	"github.com/poiesic/datagen/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	repo     storage.ReviewRepository
	index    storage.VectorIndex
	embedder *mock.MockEmbedder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := sqlite.NewReviewRepository(context.Background(), filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	index, err := badger.NewMemoryVectorIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	return &env{repo: repo, index: index, embedder: mock.NewMockEmbedder()}
}

func (e *env) seed(t *testing.T, topic string, n int) {
	t.Helper()
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{
			ProductName: fmt.Sprintf("%s %d", topic, i),
			ReviewText:  fmt.Sprintf("review %d", i),
			Sentiment:   core.Sentiments[i%len(core.Sentiments)],
		}
	}
	_, err := e.repo.InsertReviews(context.Background(), topic, records)
	require.NoError(t, err)
}

func (e *env) reindexer(t *testing.T, scheme pipeline.IDScheme, cfg *Config, out io.Writer) *Reindexer {
	t.Helper()
	embedder, err := pipeline.NewEmbedder(e.repo, e.embedder, false, nil)
	require.NoError(t, err)
	indexer, err := pipeline.NewIndexer(e.index, scheme, nil)
	require.NoError(t, err)
	r, err := NewReindexer(e.repo, e.index, embedder, indexer, cfg, out)
	require.NoError(t, err)
	return r
}

func TestReindexer_Run(t *testing.T) {
	for _, scheme := range []pipeline.IDScheme{pipeline.IDPositional, pipeline.IDSequence} {
		t.Run(string(scheme), func(t *testing.T) {
			e := newEnv(t)
			e.seed(t, "Bicycles", 25)
			e.seed(t, "Kettles", 4)

			var out bytes.Buffer
			cfg := &Config{BatchSize: 10, ReportInterval: 10, MaxRetries: 1, RetryDelay: time.Millisecond}
			n, err := e.reindexer(t, scheme, cfg, &out).Run(context.Background(), "Bicycles")
			require.NoError(t, err)
			assert.Equal(t, 25, n)

			col, err := e.index.GetCollection(context.Background(), core.CollectionName("Bicycles"))
			require.NoError(t, err)
			assert.Equal(t, 25, col.Count)
			assert.Equal(t, 3, e.embedder.CallCount(), "one call per batch")

			_, err = e.index.GetCollection(context.Background(), core.CollectionName("Kettles"))
			assert.ErrorIs(t, err, storage.ErrNotFound)

			assert.Contains(t, out.String(), "Reindexing 25 reviews")
			assert.Contains(t, out.String(), "25/25")
		})
	}
}

func TestReindexer_ReplacesCollection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	name := core.CollectionName("Bicycles")

	_, err := e.index.GetOrCreateCollection(ctx, name, storage.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, e.index.Upsert(ctx, name, []storage.IndexEntry{
		{ID: "stale", Vector: []float32{1, 0, 0}, Document: "stale"},
	}))

	e.seed(t, "Bicycles", 3)
	n, err := e.reindexer(t, pipeline.IDSequence, nil, nil).Run(ctx, "Bicycles")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	col, err := e.index.GetCollection(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 3, col.Count)
	assert.Equal(t, mock.DefaultDimension, col.Dimension)
}

func TestReindexer_EmptyTopic(t *testing.T) {
	e := newEnv(t)

	var out bytes.Buffer
	n, err := e.reindexer(t, pipeline.IDPositional, nil, &out).Run(context.Background(), "Unicycles")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, out.String(), "0 rows")
	assert.Equal(t, 0, e.embedder.CallCount())
}

func TestReindexer_RetriesEmbedding(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Bicycles", 2)

	calls := 0
	e.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporarily unavailable")
		}
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{1, float32(i), 0}
		}
		return out, nil
	}

	cfg := &Config{BatchSize: 10, ReportInterval: 1, MaxRetries: 3, RetryDelay: time.Millisecond}
	n, err := e.reindexer(t, pipeline.IDSequence, cfg, nil).Run(context.Background(), "Bicycles")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}

func TestReindexer_GivesUp(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Bicycles", 2)
	e.embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("down")
	}

	cfg := &Config{BatchSize: 10, ReportInterval: 1, MaxRetries: 2, RetryDelay: time.Millisecond}
	_, err := e.reindexer(t, pipeline.IDSequence, cfg, nil).Run(context.Background(), "Bicycles")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbedding)
	assert.Equal(t, 2, e.embedder.CallCount())
}

func TestReindexer_InvalidTopic(t *testing.T) {
	e := newEnv(t)
	_, err := e.reindexer(t, pipeline.IDPositional, nil, nil).Run(context.Background(), " ")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRowIterator_Pages(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Bicycles", 7)

	var sizes []int
	var last int64
	err := NewRowIterator(e.repo, 3).ForEach(context.Background(), "Bicycles", func(rows []core.StoredRecord) error {
		sizes = append(sizes, len(rows))
		for _, r := range rows {
			assert.Greater(t, r.ID, last)
			last = r.ID
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
}

func TestRowIterator_StopsOnError(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Bicycles", 6)

	boom := errors.New("boom")
	pages := 0
	err := NewRowIterator(e.repo, 2).ForEach(context.Background(), "Bicycles", func([]core.StoredRecord) error {
		pages++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, pages)
}

func TestRowIterator_ContextCanceled(t *testing.T) {
	e := newEnv(t)
	e.seed(t, "Bicycles", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRowIterator(e.repo, 2).ForEach(ctx, "Bicycles", func([]core.StoredRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewReindexer_Requirements(t *testing.T) {
	_, err := NewReindexer(nil, nil, nil, nil, nil, nil)
	assert.ErrorIs(t, err, pipeline.ErrRepositoryRequired)
}
