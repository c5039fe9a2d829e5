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

import "errors"

var (
	// ErrGeneratorRequired is returned when a generation provider is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrEmbedderRequired is returned when an embedding provider is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRepositoryRequired is returned when a review repository is not provided.
	ErrRepositoryRequired = errors.New("review repository required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrExporterRequired is returned when a CSV exporter is not provided.
	ErrExporterRequired = errors.New("exporter required")

	// ErrUnknownIDScheme is returned for an unrecognized ID scheme name.
	ErrUnknownIDScheme = errors.New("unknown id scheme")
)

// Stage names used in logs and StageError.
const (
	StageRoute    = "route"
	StageGenerate = "generate"
	StagePersist  = "persist"
	StageEmbed    = "embed"
	StageIndex    = "index"
	StageQuery    = "query"
)
