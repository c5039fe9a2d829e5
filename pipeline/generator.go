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

	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/core"
	"github.com/tmc/langchaingo/prompts"
)

const reviewPromptTemplate = `Generate {{.num_rows}} synthetic product reviews about {{.topic}} in strict JSON array format.
Each item must be an object with exactly these keys: "Product Name", "Review", "Sentiment".
"Sentiment" must be one of: Positive, Neutral, Negative.

Example:
[
  {"Product Name": "XPhone", "Review": "Good battery, the camera struggles at night.", "Sentiment": "Neutral"}
]

The data should feel real: use believable made-up product names and vary the writing style.
Stay strictly within {{.topic}}; do not drift into other categories or products.
Return exactly {{.num_rows}} items. Only return valid JSON, with no commentary or markdown.`

// Generator asks the generation provider for a batch of reviews and parses the result.
type Generator struct {
	llm    ai.Generator
	prompt prompts.PromptTemplate
	logger *slog.Logger
}

// NewGenerator creates a Generator backed by llm.
func NewGenerator(llm ai.Generator, logger *slog.Logger) (*Generator, error) {
	if llm == nil {
		return nil, ErrGeneratorRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:    llm,
		prompt: prompts.NewPromptTemplate(reviewPromptTemplate, []string{"topic", "num_rows"}),
		logger: logger.With("stage", StageGenerate),
	}, nil
}

// Prompt renders the instruction sent to the provider.
func (g *Generator) Prompt(topic string, numRows int) (string, error) {
	return g.prompt.Format(map[string]any{
		"topic":    topic,
		"num_rows": numRows,
	})
}

// Generate returns exactly numRows records about topic, or an empty batch if
// the provider returned an empty array. numRows == 0 skips the provider.
func (g *Generator) Generate(ctx context.Context, topic string, numRows int) ([]core.Record, error) {
	if numRows <= 0 {
		return []core.Record{}, nil
	}

	prompt, err := g.Prompt(topic, numRows)
	if err != nil {
		return nil, fmt.Errorf("%w: render prompt: %w", core.ErrGeneration, err)
	}

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		g.logger.Error("generation provider failed", "topic", topic, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrGeneration, err)
	}

	records, err := parseReviews(raw, numRows)
	if err != nil {
		g.logger.Warn("could not parse generation output", "topic", topic, "err", err, "output_length", len(raw))
		return nil, err
	}

	g.logger.Info("generated records", "topic", topic, "requested", numRows, "count", len(records))
	return records, nil
}
