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
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/datagen/core"
)

// Pipeline routes a request to the generate or search branch and runs that
// branch's stages in order on a bounded worker pool.
type Pipeline struct {
	router    *Router
	generator *Generator
	persister *Persister
	embedder  *Embedder
	indexer   *Indexer
	query     *QueryEngine
	locks     *topicLocks
	pool      *ants.Pool
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many requests may run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New assembles a Pipeline from its stages.
func New(
	generator *Generator,
	persister *Persister,
	embedder *Embedder,
	indexer *Indexer,
	query *QueryEngine,
	opts ...Option,
) (*Pipeline, error) {
	switch {
	case generator == nil:
		return nil, ErrGeneratorRequired
	case persister == nil:
		return nil, ErrRepositoryRequired
	case embedder == nil:
		return nil, ErrEmbedderRequired
	case indexer == nil, query == nil:
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		generator: generator,
		persister: persister,
		embedder:  embedder,
		indexer:   indexer,
		query:     query,
		locks:     newTopicLocks(),
		pool:      pool,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.router = NewRouter(p.logger)
	return p, nil
}

// Run validates state, routes it and executes the chosen branch. The stage
// outputs are written into state, which is also returned. The first failing
// stage stops the run; its error is returned as a *core.StageError.
//
// Run blocks until a pool worker has finished the request or ctx is done.
// A run abandoned through ctx still completes in the background under its
// topic lock, but its outputs are not written into state.
func (p *Pipeline) Run(ctx context.Context, state *core.RequestState) (*core.RequestState, error) {
	if err := core.ValidateRequest(state); err != nil {
		return state, &core.StageError{Stage: StageRoute, Err: err}
	}

	branch, err := p.router.Route(state)
	if err != nil {
		return state, &core.StageError{Stage: StageRoute, Err: err}
	}

	logger := p.logger.With("request_id", state.ID, "intent", state.Intent, "topic", state.Topic())

	// Workers write into private copies so an abandoned run never races the caller.
	var (
		gen    core.GenerateState
		search core.SearchState
		task   func() error
	)
	switch branch {
	case BranchSearch:
		search = *state.Search
		task = func() error { return p.runSearch(ctx, &search, logger) }
	default:
		gen = *state.Generate
		task = func() error { return p.runGenerate(ctx, &gen, logger) }
	}

	done := make(chan error, 1)
	go func() {
		if submitErr := p.pool.Submit(func() {
			if ctx.Err() != nil {
				done <- &core.StageError{Stage: StageRoute, Err: ctx.Err()}
				return
			}
			done <- task()
		}); submitErr != nil {
			done <- &core.StageError{Stage: StageRoute, Err: submitErr}
		}
	}()

	select {
	case err := <-done:
		switch branch {
		case BranchSearch:
			*state.Search = search
		default:
			*state.Generate = gen
		}
		return state, err
	case <-ctx.Done():
		logger.Warn("run abandoned", "err", ctx.Err())
		return state, &core.StageError{Stage: StageRoute, Err: ctx.Err()}
	}
}

// LockTopic takes the write lock of topic, excluding generate and search
// runs on it until the returned function is called.
func (p *Pipeline) LockTopic(topic string) (unlock func()) {
	l := p.locks.get(topic)
	l.Lock()
	return l.Unlock
}

func (p *Pipeline) runGenerate(ctx context.Context, g *core.GenerateState, logger *slog.Logger) error {
	lock := p.locks.get(g.Topic)
	lock.Lock()
	defer lock.Unlock()

	records, err := p.generator.Generate(ctx, g.Topic, g.NumRows)
	if err != nil {
		logger.Error("generate failed", "stage", StageGenerate, "err", err)
		return &core.StageError{Stage: StageGenerate, Err: err}
	}
	g.GeneratedRecords = records

	stored, err := p.persister.Persist(ctx, g.Topic, records)
	if err != nil {
		logger.Error("persist failed", "stage", StagePersist, "err", err)
		return &core.StageError{Stage: StagePersist, Err: err}
	}
	g.StoredCount = len(stored)

	embedded, err := p.embedder.Embed(ctx, g.Topic, stored)
	if err != nil {
		logger.Error("embed failed", "stage", StageEmbed, "err", err)
		return &core.StageError{Stage: StageEmbed, Err: err}
	}
	g.EmbeddedRecords = embedded

	name, count, err := p.indexer.Index(ctx, g.Topic, embedded)
	if err != nil {
		logger.Error("index failed", "stage", StageIndex, "err", err)
		return &core.StageError{Stage: StageIndex, Err: err}
	}
	g.CollectionName = name
	g.StoredCount = count

	logger.Info("generate complete", "generated", len(records), "stored", count, "collection", name)
	return nil
}

func (p *Pipeline) runSearch(ctx context.Context, s *core.SearchState, logger *slog.Logger) error {
	lock := p.locks.get(s.Topic)
	lock.RLock()
	defer lock.RUnlock()

	results, err := p.query.Search(ctx, s.Topic, s.QueryText, s.TopK)
	if err != nil {
		logger.Warn("search failed", "stage", StageQuery, "err", err)
		return &core.StageError{Stage: StageQuery, Err: err}
	}
	s.QueryResults = results

	logger.Info("search complete", "top_k", s.TopK, "results", len(results))
	return nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
