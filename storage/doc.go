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

// Package storage provides the storage abstraction layer for datagen.
//
// Two stores back the pipeline:
//
//   - ReviewRepository: the relational table of generated reviews (storage/sqlite)
//   - VectorIndex: per-topic vector collections (storage/badger)
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return these interfaces:
//
//	repo, err := sqlite.NewReviewRepository(path)  // storage.ReviewRepository
//	index, err := badger.NewVectorIndex(dir)       // storage.VectorIndex
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. Callers that need
// read-after-write ordering across both stores serialize per topic themselves.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
package storage
