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
	"fmt"
	"strings"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ProductName must not be empty or whitespace
//   - ReviewText must not be empty or whitespace
//   - Sentiment must be one of Positive, Neutral, Negative
func ValidateRecord(r Record) error {
	if strings.TrimSpace(r.ProductName) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyProductName)
	}
	if strings.TrimSpace(r.ReviewText) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyReview)
	}
	if _, err := ParseSentiment(string(r.Sentiment)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// ValidateTopic rejects empty or whitespace-only topics.
func ValidateTopic(topic string) error {
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyTopic)
	}
	return nil
}

// ValidateGenerate validates the inputs of a generate request.
// Stage outputs are not checked; they are populated by the pipeline.
func ValidateGenerate(g *GenerateState) error {
	if g == nil {
		return fmt.Errorf("%w: %w: %s", ErrValidation, ErrMissingRequestArm, IntentGenerate)
	}
	if err := ValidateTopic(g.Topic); err != nil {
		return err
	}
	if g.NumRows <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrValidation, ErrInvalidNumRows, g.NumRows)
	}
	return nil
}

// ValidateSearch validates the inputs of a search request.
func ValidateSearch(s *SearchState) error {
	if s == nil {
		return fmt.Errorf("%w: %w: %s", ErrValidation, ErrMissingRequestArm, IntentSearch)
	}
	if err := ValidateTopic(s.Topic); err != nil {
		return err
	}
	if strings.TrimSpace(s.QueryText) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyQuery)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: %w: got %d", ErrValidation, ErrInvalidTopK, s.TopK)
	}
	return nil
}

// ValidateRequest validates the arm of s that its intent selects.
// Unrecognized intents are validated as generate requests, matching the
// router's fallback.
func ValidateRequest(s *RequestState) error {
	if s == nil {
		return fmt.Errorf("%w: %w", ErrValidation, ErrMissingRequestArm)
	}
	if s.Intent == IntentSearch {
		return ValidateSearch(s.Search)
	}
	return ValidateGenerate(s.Generate)
}
