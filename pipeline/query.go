// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage"
)

// DefaultQueryCacheTTL is how long an embedded query vector is reused.
const DefaultQueryCacheTTL = 10 * time.Minute

// QueryEngine embeds query text and searches a topic's collection.
type QueryEngine struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	vectors  *cache.Cache
	logger   *slog.Logger
}

// NewQueryEngine creates a QueryEngine. A ttl of zero or less disables the
// query-vector cache.
func NewQueryEngine(index storage.VectorIndex, embedder ai.Embedder, ttl time.Duration, logger *slog.Logger) (*QueryEngine, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &QueryEngine{
		index:    index,
		embedder: embedder,
		logger:   logger.With("stage", StageQuery),
	}
	if ttl > 0 {
		q.vectors = cache.New(ttl, 2*ttl)
	}
	return q, nil
}

// Search returns up to topK reviews from topic's collection nearest to queryText,
// closest first.
func (q *QueryEngine) Search(ctx context.Context, topic, queryText string, topK int) ([]core.QueryResult, error) {
	name := core.CollectionName(topic)

	if _, err := q.index.GetCollection(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	vec, err := q.queryVector(ctx, queryText)
	if err != nil {
		return nil, err
	}

	matches, err := q.index.Query(ctx, name, vec, topK)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", core.ErrCollectionNotFound, name)
		case errors.Is(err, storage.ErrDimensionMismatch):
			return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
		case errors.Is(err, storage.ErrInvalidQuery):
			return nil, fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	results := make([]core.QueryResult, len(matches))
	for i, m := range matches {
		results[i] = core.QueryResult{
			ReviewText:  m.Entry.Document,
			ProductName: m.Entry.ProductName,
			Sentiment:   m.Entry.Sentiment,
			Distance:    m.Distance,
		}
	}

	q.logger.Debug("query complete", "collection", name, "top_k", topK, "results", len(results))
	return results, nil
}

func (q *QueryEngine) queryVector(ctx context.Context, text string) ([]float32, error) {
	if q.vectors != nil {
		if v, found := q.vectors.Get(text); found {
			return v.([]float32), nil
		}
	}

	vec, err := q.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", core.ErrEmbedding)
	}

	if q.vectors != nil {
		q.vectors.Set(text, vec, cache.DefaultExpiration)
	}
	return vec, nil
}
