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

package storage

import (
	"context"

	"github.com/poiesic/datagen/core"
)

// ReviewRepository is the relational store for generated reviews.
// Rows are append-only; ids increase monotonically in insertion order.
type ReviewRepository interface {
	// EnsureSchema creates the reviews table if it does not already exist.
	// Calling it again is a no-op.
	EnsureSchema(ctx context.Context) error

	// InsertReviews appends records for topic in a single transaction.
	// Either every record is stored or none is.
	// Returns the stored rows in insertion order with ids populated.
	InsertReviews(ctx context.Context, topic string, records []core.Record) ([]core.StoredRecord, error)

	// RecentReviews returns up to limit rows for topic, newest first.
	RecentReviews(ctx context.Context, topic string, limit int) ([]core.StoredRecord, error)

	// ReviewsAfter returns up to limit rows for topic with id > afterID, oldest first.
	// It is used to page through a topic in batches.
	ReviewsAfter(ctx context.Context, topic string, afterID int64, limit int) ([]core.StoredRecord, error)

	// CountReviews returns the number of rows stored for topic.
	CountReviews(ctx context.Context, topic string) (int, error)

	// Close releases the underlying database handle.
	Close() error
}

// Metric names the distance function of a collection.
type Metric string

// MetricCosine ranks by 1 - cosine similarity.
const MetricCosine Metric = "cosine"

// Collection describes a named set of vectors in the index.
// Dimension is zero until the first entry is written.
type Collection struct {
	Name      string
	Metric    Metric
	Dimension int
	Count     int
}

// IndexEntry is one vector stored in a collection along with the review
// metadata needed to answer a query without going back to the relational store.
type IndexEntry struct {
	ID          string
	Vector      []float32
	ProductName string
	Sentiment   string
	Document    string
}

// Match is a query hit with its distance from the query vector.
type Match struct {
	Entry    IndexEntry
	Distance float32
}

// VectorIndex stores per-topic collections and answers nearest-neighbour queries.
type VectorIndex interface {
	// GetOrCreateCollection returns the named collection, creating it if needed.
	GetOrCreateCollection(ctx context.Context, name string, metric Metric) (*Collection, error)

	// GetCollection returns the named collection or ErrNotFound.
	GetCollection(ctx context.Context, name string) (*Collection, error)

	// DeleteCollection removes a collection and all of its entries.
	// Returns ErrNotFound if it does not exist.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert writes entries into the collection, overwriting any entry with the same ID.
	// All vectors must share the collection's dimension (ErrDimensionMismatch).
	Upsert(ctx context.Context, name string, entries []IndexEntry) error

	// Query returns up to topK entries ordered by ascending distance from vector.
	// Ties are ordered by entry ID.
	Query(ctx context.Context, name string, vector []float32, topK int) ([]Match, error)

	// Close releases resources held by the index.
	Close() error
}
