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

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/pipeline"
	"github.com/poiesic/datagen/retry"
	"github.com/poiesic/datagen/storage"
)

// Config holds configuration for a reindex run.
type Config struct {
	// BatchSize is the number of rows embedded per provider call
	BatchSize int

	// ReportInterval is how often to report progress (number of rows)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reindexer drops a topic's collection and rebuilds it from stored rows.
type Reindexer struct {
	repo     storage.ReviewRepository
	index    storage.VectorIndex
	embedder *pipeline.Embedder
	indexer  *pipeline.Indexer
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewReindexer creates a Reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(
	repo storage.ReviewRepository,
	index storage.VectorIndex,
	embedder *pipeline.Embedder,
	indexer *pipeline.Indexer,
	config *Config,
	progress io.Writer,
) (*Reindexer, error) {
	switch {
	case repo == nil:
		return nil, pipeline.ErrRepositoryRequired
	case index == nil, indexer == nil:
		return nil, pipeline.ErrIndexRequired
	case embedder == nil:
		return nil, pipeline.ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reindexer{
		repo:     repo,
		index:    index,
		embedder: embedder,
		indexer:  indexer,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "reindex"),
	}, nil
}

// Run rebuilds the collection for topic and returns the number of rows indexed.
// The existing collection is removed first; a topic with no rows is left
// without a collection.
func (r *Reindexer) Run(ctx context.Context, topic string) (int, error) {
	if err := core.ValidateTopic(topic); err != nil {
		return 0, err
	}

	total, err := r.repo.CountReviews(ctx, topic)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count reviews: %w", core.ErrPersistence, err)
	}

	name := core.CollectionName(topic)
	if err := r.index.DeleteCollection(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("%w: failed to drop collection: %w", core.ErrPersistence, err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No reviews stored for %q (0 rows)\n", topic)
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Reindexing %d reviews for %q into %s (batch size: %d)\n",
		total, topic, name, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	indexed := 0
	err = NewRowIterator(r.repo, r.config.BatchSize).ForEach(ctx, topic, func(rows []core.StoredRecord) error {
		var embedded []core.EmbeddingRecord
		err := retry.WithBackoff(ctx, func() error {
			var err error
			embedded, err = r.embedder.EmbedRows(ctx, rows)
			return err
		}, r.config.MaxRetries, r.config.RetryDelay)
		if err != nil {
			return fmt.Errorf("failed to embed batch after %d attempts: %w", r.config.MaxRetries, err)
		}

		_, n, err := r.indexer.IndexAt(ctx, topic, embedded, indexed)
		if err != nil {
			return fmt.Errorf("failed to index batch: %w", err)
		}

		indexed += n
		tracker.Add(n)
		return nil
	})
	if err != nil {
		r.logger.Error("reindex failed", "topic", topic, "indexed", indexed, "err", err)
		return indexed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d reviews in %v\n", indexed, elapsed.Round(time.Millisecond))
	r.logger.Info("reindex complete", "topic", topic, "collection", name, "indexed", indexed)
	return indexed, nil
}
