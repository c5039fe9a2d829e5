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

package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the pipeline. Callers distinguish them with errors.Is.
var (
	// ErrValidation indicates a request failed input validation.
	ErrValidation = errors.New("validation error")

	// ErrGeneration indicates the generation provider call itself failed.
	ErrGeneration = errors.New("generation error")

	// ErrGenerationParse indicates the generation output could not be turned into records.
	ErrGenerationParse = errors.New("generation parse error")

	// ErrPersistence indicates a relational store, export or index write failed.
	ErrPersistence = errors.New("persistence error")

	// ErrEmbedding indicates the embedding provider failed or returned malformed vectors.
	ErrEmbedding = errors.New("embedding error")

	// ErrCollectionNotFound indicates a search against a topic that was never indexed.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Domain validation errors
var (
	ErrEmptyTopic        = errors.New("topic cannot be empty")
	ErrInvalidNumRows    = errors.New("num_rows must be positive")
	ErrInvalidTopK       = errors.New("top_k must be positive")
	ErrEmptyQuery        = errors.New("query text cannot be empty")
	ErrEmptyProductName  = errors.New("product name cannot be empty")
	ErrEmptyReview       = errors.New("review cannot be empty")
	ErrInvalidSentiment  = errors.New("invalid sentiment")
	ErrMissingRequestArm = errors.New("request payload missing for intent")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "validation_error"},
	{ErrGenerationParse, "generation_parse_error"},
	{ErrGeneration, "generation_error"},
	{ErrPersistence, "persistence_error"},
	{ErrEmbedding, "embedding_error"},
	{ErrCollectionNotFound, "collection_not_found"},
}

// KindOf returns the stable kind name for err, or "internal_error" when err
// carries none of the known kinds.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal_error"
}

// StageError records which pipeline stage produced an error.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("datagen: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
