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

	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage"
)

// Indexer writes embedded rows into the topic's vector collection.
type Indexer struct {
	index  storage.VectorIndex
	scheme IDScheme
	logger *slog.Logger
}

// NewIndexer creates an Indexer using scheme to assign entry IDs.
func NewIndexer(index storage.VectorIndex, scheme IDScheme, logger *slog.Logger) (*Indexer, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if scheme == "" {
		scheme = IDPositional
	}
	if _, err := ParseIDScheme(string(scheme)); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		index:  index,
		scheme: scheme,
		logger: logger.With("stage", StageIndex),
	}, nil
}

// Index upserts records into the collection for topic and returns the
// collection name and the number of entries written.
func (x *Indexer) Index(ctx context.Context, topic string, records []core.EmbeddingRecord) (string, int, error) {
	return x.IndexAt(ctx, topic, records, 0)
}

// IndexAt is Index for a batch that starts at position offset of a larger
// run, so positional IDs do not collide across batches.
func (x *Indexer) IndexAt(ctx context.Context, topic string, records []core.EmbeddingRecord, offset int) (string, int, error) {
	name := core.CollectionName(topic)

	if _, err := x.index.GetOrCreateCollection(ctx, name, storage.MetricCosine); err != nil {
		return "", 0, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	if len(records) == 0 {
		return name, 0, nil
	}

	entries := make([]storage.IndexEntry, len(records))
	for i, rec := range records {
		entries[i] = storage.IndexEntry{
			ID:          x.scheme.EntryID(offset+i, rec),
			Vector:      rec.Vector,
			ProductName: rec.Row.ProductName,
			Sentiment:   string(rec.Row.Sentiment),
			Document:    rec.Row.ReviewText,
		}
	}

	if err := x.index.Upsert(ctx, name, entries); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			return "", 0, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
		}
		return "", 0, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	x.logger.Info("indexed records", "collection", name, "count", len(entries), "id_scheme", x.scheme)
	return name, len(entries), nil
}
