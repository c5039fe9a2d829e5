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
	"fmt"
	"strconv"

	"github.com/poiesic/datagen/core"
)

// IDScheme decides the index entry ID for each embedded row.
type IDScheme string

const (
	// IDPositional numbers entries by batch position (review_0, review_1, ...).
	// A new batch overwrites the entries of the previous one.
	IDPositional IDScheme = "positional"

	// IDSequence uses the relational row id, so batches accumulate.
	IDSequence IDScheme = "sequence"

	// IDContent hashes the review text, so identical reviews share one entry.
	IDContent IDScheme = "content"
)

// ParseIDScheme validates a scheme name.
func ParseIDScheme(s string) (IDScheme, error) {
	switch v := IDScheme(s); v {
	case IDPositional, IDSequence, IDContent:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIDScheme, s)
}

// EntryID returns the index entry ID for rec at position i in its batch.
func (s IDScheme) EntryID(i int, rec core.EmbeddingRecord) string {
	switch s {
	case IDSequence:
		return "review_" + strconv.FormatInt(rec.Row.ID, 10)
	case IDContent:
		return "review_" + core.IDFromContent(rec.Row.EmbeddingText()).Hex()
	default:
		return "review_" + strconv.Itoa(i)
	}
}
