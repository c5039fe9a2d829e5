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

package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/datagen/storage"
)

// upsertChunk bounds the number of entries written per transaction.
const upsertChunk = 1000

// VectorIndex implements storage.VectorIndex on BadgerDB with an exact scan.
type VectorIndex struct {
	backend *Backend
	owned   bool
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex opens (or creates) a vector index rooted at dir.
func NewVectorIndex(dir string) (storage.VectorIndex, error) {
	backend, err := OpenBackend(dir, false)
	if err != nil {
		return nil, err
	}
	return &VectorIndex{backend: backend, owned: true}, nil
}

// NewVectorIndexWithBackend wraps an already open backend. Closing the index
// leaves the backend open.
func NewVectorIndexWithBackend(backend *Backend) *VectorIndex {
	return &VectorIndex{backend: backend}
}

// Close closes the backend if the index opened it.
func (x *VectorIndex) Close() error {
	if x.owned && !x.backend.IsClosed() {
		return x.backend.Close()
	}
	return nil
}

// GetOrCreateCollection returns the named collection, creating it if needed.
func (x *VectorIndex) GetOrCreateCollection(ctx context.Context, name string, metric storage.Metric) (*storage.Collection, error) {
	if name == "" {
		return nil, storage.WrapError("get_or_create_collection", storage.ErrInvalidQuery)
	}

	var col *storage.Collection
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readCollection(tx, name)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if existing != nil {
			col = existing
			return nil
		}
		col = &storage.Collection{Name: name, Metric: metric}
		if err := tx.Set(makeCollectionKey(name), storage.MarshalCollection(col)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if errors.Is(err, badger.ErrConflict) {
		// Someone else created it first.
		return x.GetCollection(ctx, name)
	}
	if err != nil {
		return nil, storage.WrapError("get_or_create_collection", err)
	}
	return col, nil
}

// GetCollection returns the named collection or storage.ErrNotFound.
func (x *VectorIndex) GetCollection(ctx context.Context, name string) (*storage.Collection, error) {
	var col *storage.Collection
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		col, err = readCollection(tx, name)
		return err
	}, false)
	if err != nil {
		return nil, storage.WrapError("get_collection", err)
	}
	return col, nil
}

// DeleteCollection removes a collection and all of its entries.
func (x *VectorIndex) DeleteCollection(ctx context.Context, name string) error {
	if _, err := x.GetCollection(ctx, name); err != nil {
		return err
	}
	if err := x.backend.deletePrefix(makeEntryPrefix(name)); err != nil {
		return storage.WrapError("delete_collection", err)
	}
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCollectionKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	return storage.WrapError("delete_collection", err)
}

// Upsert writes entries into the collection, replacing entries with the same ID.
// The collection's dimension is fixed by the first vector written to it.
func (x *VectorIndex) Upsert(ctx context.Context, name string, entries []storage.IndexEntry) error {
	for start := 0; start < len(entries); start += upsertChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+upsertChunk, len(entries))
		if err := x.upsertChunk(name, entries[start:end]); err != nil {
			return storage.WrapError("upsert", err)
		}
	}
	return nil
}

func (x *VectorIndex) upsertChunk(name string, entries []storage.IndexEntry) error {
	return x.backend.WithTx(func(tx *badger.Txn) error {
		col, err := readCollection(tx, name)
		if err != nil {
			return err
		}

		for i := range entries {
			e := &entries[i]
			if len(e.Vector) == 0 {
				return fmt.Errorf("%w: entry %q has no vector", storage.ErrDimensionMismatch, e.ID)
			}
			if col.Dimension == 0 {
				col.Dimension = len(e.Vector)
			}
			if len(e.Vector) != col.Dimension {
				return fmt.Errorf("%w: entry %q has %d, collection %q has %d",
					storage.ErrDimensionMismatch, e.ID, len(e.Vector), name, col.Dimension)
			}

			key := makeEntryKey(name, e.ID)
			if _, err := tx.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
				col.Count++
			} else if err != nil {
				return err
			}
			if err := tx.Set(key, storage.MarshalIndexEntry(e)); err != nil {
				return err
			}
		}

		if err := tx.Set(makeCollectionKey(name), storage.MarshalCollection(col)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Query returns up to topK entries nearest to vector by cosine distance.
func (x *VectorIndex) Query(ctx context.Context, name string, vector []float32, topK int) ([]storage.Match, error) {
	if topK <= 0 {
		return nil, storage.WrapError("query", storage.ErrInvalidQuery)
	}

	var matches []storage.Match
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		col, err := readCollection(tx, name)
		if err != nil {
			return err
		}
		if col.Dimension != 0 && len(vector) != col.Dimension {
			return fmt.Errorf("%w: query has %d, collection %q has %d",
				storage.ErrDimensionMismatch, len(vector), name, col.Dimension)
		}

		matches = make([]storage.Match, 0, col.Count)
		return scanPrefix(tx, makeEntryPrefix(name), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalIndexEntry(val)
				if err != nil {
					return err
				}
				matches = append(matches, storage.Match{
					Entry:    *entry,
					Distance: cosineDistance(vector, entry.Vector),
				})
				return nil
			})
		})
	}, false)
	if err != nil {
		return nil, storage.WrapError("query", err)
	}

	slices.SortStableFunc(matches, func(a, b storage.Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func readCollection(tx *badger.Txn, name string) (*storage.Collection, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: collection %q", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	var col *storage.Collection
	err = item.Value(func(val []byte) error {
		var err error
		col, err = storage.UnmarshalCollection(val)
		return err
	})
	return col, err
}

// cosineDistance returns 1 - cos(a, b), clamped to [0, 2].
// A zero vector is treated as orthogonal to everything.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	return float32(max(0, min(2, d)))
}
