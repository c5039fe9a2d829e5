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

	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/storage"
)

// DefaultBatchSize is the number of rows fetched per page.
const DefaultBatchSize = 100

// RowIterator pages through one topic's reviews in id order.
type RowIterator struct {
	repo      storage.ReviewRepository
	batchSize int
}

// NewRowIterator creates an iterator reading batchSize rows per page.
func NewRowIterator(repo storage.ReviewRepository, batchSize int) *RowIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &RowIterator{repo: repo, batchSize: batchSize}
}

// ForEach calls fn with each page of rows for topic, oldest first.
// It stops at the first error from fn or the repository, or when ctx is done.
func (it *RowIterator) ForEach(ctx context.Context, topic string, fn func([]core.StoredRecord) error) error {
	var after int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rows, err := it.repo.ReviewsAfter(ctx, topic, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		if err := fn(rows); err != nil {
			return err
		}

		after = rows[len(rows)-1].ID
		if len(rows) < it.batchSize {
			return nil
		}
	}
}
