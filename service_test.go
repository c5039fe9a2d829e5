package datagen

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/ai/mock"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/pipeline"
	"github.com/poiesic/datagen/reindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	opts = append([]Option{WithProvider(provider)}, opts...)

	svc, err := NewService(context.Background(), t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, provider
}

func TestNewService(t *testing.T) {
	t.Run("default provider and on-disk index", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		svc, err := NewService(context.Background(), dir)
		require.NoError(t, err)
		defer svc.Close()

		assert.NotNil(t, svc.Reviews())
		assert.NotNil(t, svc.Index())
		assert.Equal(t, filepath.Join(dir, ExportFile), svc.ExportPath())
		assert.FileExists(t, filepath.Join(dir, DatabaseFile))
		assert.DirExists(t, filepath.Join(dir, IndexDir))
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		svc, err := NewService(context.Background(), tmpFile)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("invalid ai config", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithEmbeddingModel(""))
		svc, err := NewService(context.Background(), t.TempDir(), WithAIConfig(cfg), WithInMemoryIndex())
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("unknown id scheme", func(t *testing.T) {
		svc, err := NewService(context.Background(), t.TempDir(),
			WithProvider(mock.NewMockProvider()), WithInMemoryIndex(), WithIDScheme("random"))
		assert.ErrorIs(t, err, pipeline.ErrUnknownIDScheme)
		assert.Nil(t, svc)
	})

	t.Run("custom export path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "exports", "latest.csv")
		svc, _ := newTestService(t, WithExportPath(path), WithInMemoryIndex())
		assert.Equal(t, path, svc.ExportPath())
	})
}

func TestService_GenerateAndSearch(t *testing.T) {
	svc, provider := newTestService(t, WithInMemoryIndex(), WithPoolSize(2))
	ctx := context.Background()

	g, err := svc.Generate(ctx, "Bicycles", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, g.StoredCount)
	assert.Equal(t, "Bicycles_product_reviews", g.CollectionName)
	assert.FileExists(t, svc.ExportPath())

	results, err := svc.Search(ctx, "Bicycles", g.GeneratedRecords[0].EmbeddingText(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, g.GeneratedRecords[0].ProductName, results[0].ProductName)

	assert.Equal(t, 1, provider.GetMockGenerator().CallCount())
}

func TestService_SearchUnknownTopic(t *testing.T) {
	svc, _ := newTestService(t, WithInMemoryIndex())

	_, err := svc.Search(context.Background(), "Unicycles", "wobbly", 3)
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)
}

func TestService_Seed(t *testing.T) {
	svc, _ := newTestService(t, WithInMemoryIndex(), WithIDScheme(pipeline.IDSequence))
	ctx := context.Background()

	results, err := svc.Seed(ctx, []string{"Bicycles", "Kettles", "Lamps"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, topic := range []string{"Bicycles", "Kettles", "Lamps"} {
		require.NotNil(t, results[i])
		assert.Equal(t, core.CollectionName(topic), results[i].CollectionName)

		n, err := svc.Reviews().CountReviews(ctx, topic)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}
}

func TestService_SeedPartialFailure(t *testing.T) {
	svc, provider := newTestService(t, WithInMemoryIndex())
	provider.GetMockGenerator().CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		if bytes.Contains([]byte(prompt), []byte("about Kettles")) {
			return "", errors.New("model unavailable")
		}
		return mock.Reviews("Bicycles", 2), nil
	}

	results, err := svc.Seed(context.Background(), []string{"Bicycles", "Kettles"}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrGeneration)
	assert.Contains(t, err.Error(), "Kettles")
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestService_Reindex(t *testing.T) {
	svc, _ := newTestService(t, WithInMemoryIndex(), WithIDScheme(pipeline.IDSequence))
	ctx := context.Background()

	for range 2 {
		_, err := svc.Generate(ctx, "Bicycles", 3)
		require.NoError(t, err)
	}

	var out bytes.Buffer
	n, err := svc.Reindex(ctx, "Bicycles", &reindex.Config{BatchSize: 4, ReportInterval: 4, MaxRetries: 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	col, err := svc.Index().GetCollection(ctx, core.CollectionName("Bicycles"))
	require.NoError(t, err)
	assert.Equal(t, 6, col.Count)
	assert.Contains(t, out.String(), "Reindex complete")
}

func TestService_ReindexBlocksSearch(t *testing.T) {
	svc, provider := newTestService(t, WithInMemoryIndex(), WithIDScheme(pipeline.IDSequence), WithPoolSize(2))
	ctx := context.Background()

	_, err := svc.Generate(ctx, "Bicycles", 4)
	require.NoError(t, err)

	// Reindex embeds in batches through EmbedTexts; searches use EmbedText.
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	embedder := provider.GetMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		once.Do(func() { close(started) })
		<-release
		embedder.EmbedTextsFunc = nil
		return embedder.EmbedTexts(ctx, texts)
	}

	reindexed := make(chan error, 1)
	go func() {
		_, err := svc.Reindex(ctx, "Bicycles", &reindex.Config{BatchSize: 4, ReportInterval: 4, MaxRetries: 1}, nil)
		reindexed <- err
	}()
	<-started

	type searchResult struct {
		results []core.QueryResult
		err     error
	}
	searched := make(chan searchResult, 1)
	go func() {
		results, err := svc.Search(ctx, "Bicycles", "overall positive experience", 10)
		searched <- searchResult{results, err}
	}()

	select {
	case <-searched:
		t.Fatal("search finished while the collection was being rebuilt")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-reindexed)

	res := <-searched
	require.NoError(t, res.err)
	assert.Len(t, res.results, 4)
}

func TestService_Close(t *testing.T) {
	svc, err := NewService(context.Background(), t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}
