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
	"log/slog"

	"github.com/poiesic/datagen/core"
)

// Branch is the execution path chosen for a request.
type Branch int

const (
	BranchGenerate Branch = iota
	BranchSearch
)

func (b Branch) String() string {
	switch b {
	case BranchGenerate:
		return "generate"
	case BranchSearch:
		return "search"
	}
	return fmt.Sprintf("Branch(%d)", int(b))
}

// Router picks a branch from the request intent.
// Anything other than search goes to generate.
type Router struct {
	logger *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger.With("stage", StageRoute)}
}

// Route selects the branch for state. An unrecognized intent routes to
// BranchGenerate and sets state.Fallback.
func (r *Router) Route(state *core.RequestState) (Branch, error) {
	if state == nil {
		return BranchGenerate, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrMissingRequestArm)
	}

	switch state.Intent {
	case core.IntentSearch:
		if state.Search == nil {
			return BranchSearch, fmt.Errorf("%w: %w: %s", core.ErrValidation, core.ErrMissingRequestArm, core.IntentSearch)
		}
		r.logger.Info("routing", "request_id", state.ID, "intent", state.Intent, "branch", BranchSearch)
		return BranchSearch, nil
	case core.IntentGenerate:
		r.logger.Info("routing", "request_id", state.ID, "intent", state.Intent, "branch", BranchGenerate)
	default:
		state.Fallback = true
		r.logger.Warn("unrecognized intent, routing to generate",
			"request_id", state.ID, "intent", state.Intent, "fallback", true)
	}

	if state.Generate == nil {
		return BranchGenerate, fmt.Errorf("%w: %w: %s", core.ErrValidation, core.ErrMissingRequestArm, core.IntentGenerate)
	}
	return BranchGenerate, nil
}
