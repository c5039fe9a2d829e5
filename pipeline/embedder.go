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
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage"
)

// Embedder vectorizes the rows stored by the persist stage.
type Embedder struct {
	repo     storage.ReviewRepository
	embedder ai.Embedder
	readBack bool
	logger   *slog.Logger
}

// NewEmbedder creates an Embedder. With readBack set, rows are re-read from the
// repository (newest first) instead of taken from the persist stage's output.
func NewEmbedder(repo storage.ReviewRepository, embedder ai.Embedder, readBack bool, logger *slog.Logger) (*Embedder, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if readBack && repo == nil {
		return nil, ErrRepositoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		repo:     repo,
		embedder: embedder,
		readBack: readBack,
		logger:   logger.With("stage", StageEmbed),
	}, nil
}

// Embed returns one EmbeddingRecord per stored row, newest first.
func (e *Embedder) Embed(ctx context.Context, topic string, stored []core.StoredRecord) ([]core.EmbeddingRecord, error) {
	if len(stored) == 0 {
		return []core.EmbeddingRecord{}, nil
	}

	rows, err := e.rows(ctx, topic, stored)
	if err != nil {
		return nil, err
	}
	return e.EmbedRows(ctx, rows)
}

// EmbedRows embeds rows in one provider call and checks the shape of the result.
func (e *Embedder) EmbedRows(ctx context.Context, rows []core.StoredRecord) ([]core.EmbeddingRecord, error) {
	if len(rows) == 0 {
		return []core.EmbeddingRecord{}, nil
	}

	texts := make([]string, len(rows))
	for i, row := range rows {
		texts[i] = row.EmbeddingText()
	}

	e.logger.Debug("generating embeddings", "rows", len(texts))
	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		e.logger.Error("embedding provider failed", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	if len(vectors) != len(rows) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", core.ErrEmbedding, len(rows), len(vectors))
	}

	dim := len(vectors[0])
	out := make([]core.EmbeddingRecord, len(rows))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: empty vector for row %d", core.ErrEmbedding, rows[i].ID)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", core.ErrEmbedding, i, len(vec), dim)
		}
		out[i] = core.EmbeddingRecord{Row: rows[i], Vector: vec, Dimension: dim}
	}
	return out, nil
}

func (e *Embedder) rows(ctx context.Context, topic string, stored []core.StoredRecord) ([]core.StoredRecord, error) {
	if !e.readBack {
		rows := slices.Clone(stored)
		slices.SortFunc(rows, func(a, b core.StoredRecord) int {
			return cmp.Compare(b.ID, a.ID)
		})
		return rows, nil
	}

	rows, err := e.repo.RecentReviews(ctx, topic, len(stored))
	if err != nil {
		return nil, fmt.Errorf("%w: read back: %w", core.ErrPersistence, err)
	}
	return rows, nil
}
