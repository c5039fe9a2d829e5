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
	"strings"

	"github.com/google/uuid"
)

// Intent selects which branch of the pipeline a request runs.
type Intent string

const (
	IntentGenerate Intent = "generate"
	IntentSearch   Intent = "search"
)

// ParseIntent normalizes s to a known Intent when it matches one, ignoring case.
// Unknown values are returned as-is so the router can apply its fallback.
func ParseIntent(s string) Intent {
	v := Intent(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case IntentGenerate, IntentSearch:
		return v
	}
	return Intent(s)
}

// Known reports whether the intent is one the router recognizes.
func (i Intent) Known() bool {
	return i == IntentGenerate || i == IntentSearch
}

// GenerateState carries the inputs and stage outputs of a generate request.
type GenerateState struct {
	Topic   string
	NumRows int

	GeneratedRecords []Record
	EmbeddedRecords  []EmbeddingRecord
	CollectionName   string
	StoredCount      int
}

// SearchState carries the inputs and results of a search request.
type SearchState struct {
	Topic     string
	QueryText string
	TopK      int

	QueryResults []QueryResult
}

// RequestState is the per-request record threaded through the pipeline.
// Exactly one of Generate or Search is expected to be populated, matching Intent.
type RequestState struct {
	ID       string
	Intent   Intent
	Generate *GenerateState
	Search   *SearchState

	// Fallback is set by the router when Intent was not recognized and the
	// request was routed to the generate branch.
	Fallback bool
}

// NewGenerateRequest builds a generate RequestState with a fresh request ID.
func NewGenerateRequest(topic string, numRows int) *RequestState {
	return &RequestState{
		ID:     uuid.NewString(),
		Intent: IntentGenerate,
		Generate: &GenerateState{
			Topic:   topic,
			NumRows: numRows,
		},
	}
}

// NewSearchRequest builds a search RequestState with a fresh request ID.
func NewSearchRequest(topic, queryText string, topK int) *RequestState {
	return &RequestState{
		ID:     uuid.NewString(),
		Intent: IntentSearch,
		Search: &SearchState{
			Topic:     topic,
			QueryText: queryText,
			TopK:      topK,
		},
	}
}

// Topic returns the topic of whichever branch payload is set.
func (s *RequestState) Topic() string {
	switch {
	case s == nil:
		return ""
	case s.Generate != nil:
		return s.Generate.Topic
	case s.Search != nil:
		return s.Search.Topic
	}
	return ""
}
