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

package datagen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/ai/openai"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/export"
	"github.com/poiesic/datagen/pipeline"
	"github.com/poiesic/datagen/reindex"
	"github.com/poiesic/datagen/storage"
	"github.com/poiesic/datagen/storage/badger"
	"github.com/poiesic/datagen/storage/sqlite"
)

// File and directory names under the data directory.
const (
	DatabaseFile = "product_reviews.db"
	ExportFile   = "data.csv"
	IndexDir     = "index"
)

// Service owns the stores and the provider and runs requests through the pipeline.
type Service struct {
	repo     storage.ReviewRepository
	index    storage.VectorIndex
	provider ai.AIProvider
	exporter *export.CSVExporter
	pipeline *pipeline.Pipeline
	embedder *pipeline.Embedder
	indexer  *pipeline.Indexer
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	exportPath    string
	idScheme      pipeline.IDScheme
	readBack      bool
	poolSize      int
	queryCacheTTL time.Duration
	inMemoryIndex bool
	logger        *slog.Logger
}

// WithAIConfig sets the provider configuration used when no provider is given.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *serviceOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses an already constructed provider. The service closes it.
func WithProvider(p ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = p
	}
}

// WithExportPath overrides the CSV export location.
// Default is <dataDir>/data.csv.
func WithExportPath(path string) Option {
	return func(o *serviceOptions) {
		o.exportPath = path
	}
}

// WithIDScheme sets how index entry IDs are assigned.
// Default is pipeline.IDPositional.
func WithIDScheme(scheme pipeline.IDScheme) Option {
	return func(o *serviceOptions) {
		o.idScheme = scheme
	}
}

// WithReadBack controls whether the embed stage re-reads rows from the
// database. Default is true.
func WithReadBack(enabled bool) Option {
	return func(o *serviceOptions) {
		o.readBack = enabled
	}
}

// WithPoolSize bounds the number of concurrent pipeline runs.
func WithPoolSize(size int) Option {
	return func(o *serviceOptions) {
		o.poolSize = size
	}
}

// WithQueryCacheTTL sets how long query vectors are cached. Zero disables the cache.
func WithQueryCacheTTL(ttl time.Duration) Option {
	return func(o *serviceOptions) {
		o.queryCacheTTL = ttl
	}
}

// WithInMemoryIndex keeps the vector index in memory instead of under the data directory.
func WithInMemoryIndex() Option {
	return func(o *serviceOptions) {
		o.inMemoryIndex = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService opens the stores under dataDir and assembles the pipeline.
func NewService(ctx context.Context, dataDir string, opts ...Option) (*Service, error) {
	options := &serviceOptions{
		aiConfig:      ai.DefaultConfig(),
		idScheme:      pipeline.IDPositional,
		readBack:      true,
		queryCacheTTL: pipeline.DefaultQueryCacheTTL,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.exportPath == "" {
		options.exportPath = filepath.Join(dataDir, ExportFile)
	}

	repo, err := sqlite.NewReviewRepository(ctx, filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return nil, err
	}

	var index storage.VectorIndex
	if options.inMemoryIndex {
		index, err = badger.NewMemoryVectorIndex()
	} else {
		index, err = badger.NewVectorIndex(filepath.Join(dataDir, IndexDir))
	}
	if err != nil {
		repo.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			index.Close()
			repo.Close()
			return nil, err
		}
	}

	s := &Service{
		repo:     repo,
		index:    index,
		provider: provider,
		exporter: export.NewCSVExporter(options.exportPath),
		logger:   options.logger.With("component", "service"),
	}
	if err := s.assemble(options); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Info("service ready", "data_dir", dataDir, "export", options.exportPath, "id_scheme", options.idScheme)
	return s, nil
}

func (s *Service) assemble(o *serviceOptions) error {
	generator, err := pipeline.NewGenerator(s.provider.Generator(), o.logger)
	if err != nil {
		return err
	}
	persister, err := pipeline.NewPersister(s.repo, s.exporter, o.logger)
	if err != nil {
		return err
	}
	s.embedder, err = pipeline.NewEmbedder(s.repo, s.provider.Embedder(), o.readBack, o.logger)
	if err != nil {
		return err
	}
	s.indexer, err = pipeline.NewIndexer(s.index, o.idScheme, o.logger)
	if err != nil {
		return err
	}
	query, err := pipeline.NewQueryEngine(s.index, s.provider.Embedder(), o.queryCacheTTL, o.logger)
	if err != nil {
		return err
	}

	popts := []pipeline.Option{pipeline.WithLogger(o.logger)}
	if o.poolSize > 0 {
		popts = append(popts, pipeline.WithPoolSize(o.poolSize))
	}
	s.pipeline, err = pipeline.New(generator, persister, s.embedder, s.indexer, query, popts...)
	return err
}

// Close releases the pipeline, the provider and both stores.
func (s *Service) Close() error {
	if s.pipeline != nil {
		s.pipeline.Release()
	}

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	var errs []error
	if err := s.index.Close(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error("error closing review repository", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run passes state through the pipeline.
func (s *Service) Run(ctx context.Context, state *core.RequestState) (*core.RequestState, error) {
	return s.pipeline.Run(ctx, state)
}

// Generate creates, stores and indexes numRows reviews about topic.
func (s *Service) Generate(ctx context.Context, topic string, numRows int) (*core.GenerateState, error) {
	state, err := s.pipeline.Run(ctx, core.NewGenerateRequest(topic, numRows))
	if err != nil {
		return nil, err
	}
	return state.Generate, nil
}

// Search returns the topK reviews in topic nearest to queryText.
func (s *Service) Search(ctx context.Context, topic, queryText string, topK int) ([]core.QueryResult, error) {
	state, err := s.pipeline.Run(ctx, core.NewSearchRequest(topic, queryText, topK))
	if err != nil {
		return nil, err
	}
	return state.Search.QueryResults, nil
}

// Seed generates numRows reviews for every topic concurrently. Results are
// returned in topic order; failed topics have a nil entry and their errors are
// joined.
func (s *Service) Seed(ctx context.Context, topics []string, numRows int) ([]*core.GenerateState, error) {
	results := make([]*core.GenerateState, len(topics))
	errs := make([]error, len(topics))

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := s.Generate(ctx, topic, numRows)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", topic, err)
				return
			}
			results[i] = g
		}()
	}
	wg.Wait()

	return results, errors.Join(errs...)
}

// Reindex rebuilds topic's collection from the stored reviews.
// Progress is written to progress when it is non-nil. Generate and search
// runs on topic wait until the rebuild has finished.
func (s *Service) Reindex(ctx context.Context, topic string, cfg *reindex.Config, progress io.Writer) (int, error) {
	r, err := reindex.NewReindexer(s.repo, s.index, s.embedder, s.indexer, cfg, progress)
	if err != nil {
		return 0, err
	}

	unlock := s.pipeline.LockTopic(topic)
	defer unlock()
	return r.Run(ctx, topic)
}

// Reviews returns the review repository.
func (s *Service) Reviews() storage.ReviewRepository {
	return s.repo
}

// Index returns the vector index.
func (s *Service) Index() storage.VectorIndex {
	return s.index
}

// ExportPath returns the location of the CSV export.
func (s *Service) ExportPath() string {
	return s.exporter.Path()
}
