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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Hex renders the ID as a fixed-width lowercase hex string.
func (id ID) Hex() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// Sentiment is the label attached to a generated review.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Sentiments lists every valid Sentiment in canonical order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentiment maps a label to its canonical Sentiment, ignoring case and
// surrounding whitespace.
func ParseSentiment(s string) (Sentiment, error) {
	trimmed := strings.TrimSpace(s)
	for _, v := range Sentiments {
		if strings.EqualFold(trimmed, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSentiment, s)
}

// Record is one synthetic product review.
type Record struct {
	ProductName string    `json:"product_name"`
	ReviewText  string    `json:"review_text"`
	Sentiment   Sentiment `json:"sentiment"`
}

// EmbeddingText is the text sent to the embedding provider for this record.
func (r Record) EmbeddingText() string {
	return r.ProductName + ": " + r.ReviewText
}

// StoredRecord is a Record after it has been written to the relational store.
type StoredRecord struct {
	ID    int64  `json:"id"`
	Topic string `json:"topic"`
	Record
}

// EmbeddingRecord pairs a persisted review with its vector.
type EmbeddingRecord struct {
	Row       StoredRecord
	Vector    []float32
	Dimension int
}

// QueryResult is a single nearest-neighbour hit.
// Distance is cosine distance, so lower is closer.
type QueryResult struct {
	ReviewText  string  `json:"review_text"`
	ProductName string  `json:"product_name"`
	Sentiment   string  `json:"sentiment"`
	Distance    float32 `json:"distance"`
}

// CollectionSuffix is appended to a topic to name its vector collection.
const CollectionSuffix = "_product_reviews"

// CollectionName returns the vector collection name for a topic.
func CollectionName(topic string) string {
	return topic + CollectionSuffix
}
