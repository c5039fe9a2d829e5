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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/datagen/core"
)

// generatedItem mirrors one element of the model's JSON array.
// Both the spaced and underscored product key are accepted.
type generatedItem struct {
	ProductName    string `json:"Product Name"`
	ProductNameAlt string `json:"Product_Name"`
	Review         string `json:"Review"`
	Sentiment      string `json:"Sentiment"`
}

// parseReviews turns raw model output into exactly want records.
// An empty array is accepted as an empty batch regardless of want.
func parseReviews(raw string, want int) ([]core.Record, error) {
	text := extractArray(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: output is empty", core.ErrGenerationParse)
	}
	if text[0] != '[' {
		return nil, fmt.Errorf("%w: output is not a JSON array", core.ErrGenerationParse)
	}

	var items []generatedItem
	if err := json.Unmarshal([]byte(repairJSON(text)), &items); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrGenerationParse, err)
	}

	if len(items) == 0 {
		return []core.Record{}, nil
	}
	if len(items) != want {
		return nil, fmt.Errorf("%w: expected %d records, got %d", core.ErrGenerationParse, want, len(items))
	}

	records := make([]core.Record, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.ProductName)
		if name == "" {
			name = strings.TrimSpace(item.ProductNameAlt)
		}
		if name == "" {
			return nil, fmt.Errorf("%w: item %d: %w", core.ErrGenerationParse, i, core.ErrEmptyProductName)
		}
		review := strings.TrimSpace(item.Review)
		if review == "" {
			return nil, fmt.Errorf("%w: item %d: %w", core.ErrGenerationParse, i, core.ErrEmptyReview)
		}
		sentiment, err := core.ParseSentiment(item.Sentiment)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", core.ErrGenerationParse, i, err)
		}
		records[i] = core.Record{ProductName: name, ReviewText: review, Sentiment: sentiment}
	}
	return records, nil
}

// extractArray strips markdown code fences and any prose around a top-level
// JSON array. Output that starts with an object is returned as-is so the
// caller can reject it.
func extractArray(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" || text[0] == '[' || text[0] == '{' {
		return text
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses.
// It specifically handles missing opening quotes before keys in JSON objects.
func repairJSON(s string) string {
	// Pattern: after { or , followed by optional whitespace, then a word followed by ":
	// Example: `, Review":` -> `, "Review":`
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+100)

	i := 0
	for i < len(result) {
		ch := result[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++
		for i < len(result) && (result[i] == ' ' || result[i] == '\n' || result[i] == '\t' || result[i] == '\r') {
			fixed = append(fixed, result[i])
			i++
		}

		if i >= len(result) || result[i] == '"' || !isLetter(result[i]) {
			continue
		}

		keyStart := i
		for i < len(result) && (isLetter(result[i]) || result[i] == '_' || result[i] == ' ') {
			i++
		}
		if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
			// Closing quote is already present at result[i].
			fixed = append(fixed, '"')
			fixed = append(fixed, result[keyStart:i]...)
			continue
		}
		fixed = append(fixed, result[keyStart:i]...)
	}

	return string(fixed)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
