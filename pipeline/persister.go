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
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/export"
	"github.com/poiesic/datagen/storage"
)

// Persister writes a generated batch to the CSV export and then appends the
// export's rows to the relational store.
type Persister struct {
	repo     storage.ReviewRepository
	exporter *export.CSVExporter
	logger   *slog.Logger

	// mu guards the export file, which every topic shares.
	mu sync.Mutex
}

// NewPersister creates a Persister. The repository schema is ensured on first use.
func NewPersister(repo storage.ReviewRepository, exporter *export.CSVExporter, logger *slog.Logger) (*Persister, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if exporter == nil {
		return nil, ErrExporterRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Persister{
		repo:     repo,
		exporter: exporter,
		logger:   logger.With("stage", StagePersist),
	}, nil
}

// Persist overwrites the export with records, reads it back and inserts every
// row under topic in one transaction. It returns the stored rows.
func (p *Persister) Persist(ctx context.Context, topic string, records []core.Record) ([]core.StoredRecord, error) {
	if err := p.repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.exporter.Write(records); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	if len(records) == 0 {
		p.logger.Info("empty batch, nothing inserted", "topic", topic)
		return []core.StoredRecord{}, nil
	}

	rows, err := p.exporter.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	stored, err := p.repo.InsertReviews(ctx, topic, rows)
	if err != nil {
		p.logger.Error("insert failed", "topic", topic, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	p.logger.Info("persisted records", "topic", topic, "count", len(stored), "export", p.exporter.Path())
	return stored, nil
}
