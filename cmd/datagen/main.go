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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/datagen"
	"github.com/poiesic/datagen/ai"
	"github.com/poiesic/datagen/api"
	"github.com/poiesic/datagen/core"
	"github.com/poiesic/datagen/pipeline"
	"github.com/poiesic/datagen/reindex"
	"github.com/poiesic/datagen/retry"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadDotEnv loads path into the environment if it exists. Variables that are
// already set win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func newApp() *cli.App {
	defaults := ai.DefaultConfig()

	return &cli.App{
		Name:  "datagen",
		Usage: "Generate, store and semantically search synthetic product reviews",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"DATAGEN_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory holding the review database and vector index",
				Value:   "data",
				EnvVars: []string{"DATAGEN_DATA_DIR"},
			},
			&cli.StringFlag{
				Name:    "export-path",
				Usage:   "CSV export location (default: <data-dir>/data.csv)",
				EnvVars: []string{"DATAGEN_EXPORT_PATH"},
			},
			&cli.StringFlag{
				Name:    "host",
				Usage:   "OpenAI-compatible endpoint used for both generation and embeddings",
				Value:   defaults.GeneratorHost,
				EnvVars: []string{"DATAGEN_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding endpoint (overrides --host)",
				EnvVars: []string{"DATAGEN_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "generator-host",
				Usage:   "Generation endpoint (overrides --host)",
				EnvVars: []string{"DATAGEN_GENERATOR_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   defaults.EmbeddingModel,
				EnvVars: []string{"DATAGEN_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "generator-model",
				Usage:   "Generation model name",
				Value:   defaults.GeneratorModel,
				EnvVars: []string{"DATAGEN_GENERATOR_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "API token for the endpoints",
				EnvVars: []string{"DATAGEN_API_TOKEN", "OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "id-scheme",
				Usage:   "Index entry IDs: positional, sequence or content",
				Value:   string(pipeline.IDPositional),
				EnvVars: []string{"DATAGEN_ID_SCHEME"},
			},
			&cli.IntFlag{
				Name:    "pool-size",
				Usage:   "Maximum concurrent pipeline runs (0 uses half the CPUs)",
				EnvVars: []string{"DATAGEN_POOL_SIZE"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"DATAGEN_ADDR"},
					},
				},
			},
			{
				Name:   "generate",
				Usage:  "Generate, store and index reviews for a topic",
				Action: generateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "topic",
						Aliases:  []string{"t"},
						Usage:    "Product category",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "num-rows",
						Aliases: []string{"n"},
						Usage:   "Number of reviews to generate",
						Value:   10,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts when the model fails or returns unusable output",
						Value: 1,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search a topic for reviews similar to a query",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "topic",
						Aliases:  []string{"t"},
						Usage:    "Product category",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results",
						Value:   5,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Generate reviews for several topics concurrently",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "topics",
						Usage:    "Comma-separated product categories",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "num-rows",
						Aliases: []string{"n"},
						Usage:   "Number of reviews per topic",
						Value:   10,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild a topic's vector collection from stored reviews",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "topic",
						Aliases:  []string{"t"},
						Usage:    "Product category",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of reviews to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N reviews",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// aiConfig builds the provider configuration from the global flags.
func aiConfig(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
	}
	if h := c.String("embedding-host"); h != "" {
		opts = append(opts, ai.WithEmbeddingHost(h))
	}
	if h := c.String("generator-host"); h != "" {
		opts = append(opts, ai.WithGeneratorHost(h))
	}
	if tok := c.String("api-token"); tok != "" {
		opts = append(opts, ai.WithAPIToken(tok))
	}
	return ai.NewConfig(opts...)
}

func openService(c *cli.Context) (*datagen.Service, error) {
	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	scheme, err := pipeline.ParseIDScheme(c.String("id-scheme"))
	if err != nil {
		return nil, err
	}

	svc, err := datagen.NewService(c.Context, c.String("data-dir"),
		datagen.WithAIConfig(cfg),
		datagen.WithExportPath(c.String("export-path")),
		datagen.WithIDScheme(scheme),
		datagen.WithPoolSize(c.Int("pool-size")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	return svc, nil
}

func serveCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.New(svc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(c.String("addr"))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func generateCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	var state *core.GenerateState
	err = retry.WithBackoff(c.Context, func() error {
		var err error
		state, err = svc.Generate(c.Context, c.String("topic"), c.Int("num-rows"))
		if err != nil && !retryable(err) {
			return retry.Permanent(err)
		}
		return err
	}, c.Int("max-retries"), c.Duration("retry-delay"))
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}

	return printJSON(c, map[string]any{
		"status":            "success",
		"count":             len(state.GeneratedRecords),
		"collection":        state.CollectionName,
		"generated_records": state.GeneratedRecords,
	})
}

// retryable reports whether a fresh attempt could succeed. Model output and
// transport failures are worth another try; bad input and storage faults are not.
func retryable(err error) bool {
	switch core.KindOf(err) {
	case "generation_parse_error", "generation_error", "embedding_error":
		return true
	}
	return false
}

func searchCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Search(c.Context, c.String("topic"), c.String("query"), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return printJSON(c, map[string]any{"results": results})
}

func seedCommand(c *cli.Context) error {
	var topics []string
	for _, t := range c.StringSlice("topics") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.Seed(c.Context, topics, c.Int("num-rows"))
	for i, topic := range topics {
		if results[i] == nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: failed\n", topic)
			continue
		}
		fmt.Fprintf(c.App.ErrWriter, "%s: %d reviews indexed into %s\n", topic, results[i].StoredCount, results[i].CollectionName)
	}
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Fprintf(c.App.ErrWriter, "Data directory: %s\n", c.String("data-dir"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := svc.Reindex(c.Context, c.String("topic"), cfg, c.App.ErrWriter); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
