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

// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/poiesic/datagen/core"
)

// Runner executes a request through the pipeline.
type Runner interface {
	Run(ctx context.Context, state *core.RequestState) (*core.RequestState, error)
}

// Server is the HTTP front end.
type Server struct {
	app    *fiber.App
	runner Runner
	logger *slog.Logger
}

// New creates a Server with its routes registered.
func New(runner Runner) *Server {
	s := &Server{
		runner: runner,
		logger: slog.Default().With("component", "api"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "datagen",
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(s.accessLog)

	app.Get("/", s.root)
	app.Get("/health", s.health)
	app.Post("/generate", s.generate)
	app.Post("/search", s.search)
	app.Post("/pipeline", s.pipeline)

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			return herr
		}
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return nil
}

func (s *Server) root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome to Datagen API"})
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (s *Server) generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	state, err := s.runner.Run(c.UserContext(), core.NewGenerateRequest(req.Topic, intOr(req.NumRows, defaultNumRows)))
	if err != nil {
		return writeError(c, err)
	}

	records := state.Generate.GeneratedRecords
	return c.JSON(GenerateResponse{
		Status:           "success",
		Count:            len(records),
		GeneratedRecords: nonNilRecords(records),
	})
}

func (s *Server) search(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	state, err := s.runner.Run(c.UserContext(), core.NewSearchRequest(req.Topic, req.QueryText, intOr(req.TopK, defaultTopK)))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(SearchResponse{Results: nonNilResults(state.Search.QueryResults)})
}

func (s *Server) pipeline(c *fiber.Ctx) error {
	var req PipelineRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	state := &core.RequestState{
		ID:     uuid.NewString(),
		Intent: core.ParseIntent(req.Intent),
	}
	if state.Intent == core.IntentSearch {
		state.Search = &core.SearchState{
			Topic:     req.Topic,
			QueryText: req.QueryText,
			TopK:      intOr(req.TopK, defaultTopK),
		}
	} else {
		state.Generate = &core.GenerateState{
			Topic:   req.Topic,
			NumRows: intOr(req.NumRows, defaultNumRows),
		}
	}

	state, err := s.runner.Run(c.UserContext(), state)
	if err != nil {
		return writeError(c, err)
	}

	resp := PipelineResponse{
		RequestID: state.ID,
		Intent:    string(state.Intent),
		Fallback:  state.Fallback,
	}
	switch {
	case state.Search != nil:
		resp.Results = nonNilResults(state.Search.QueryResults)
		resp.Count = len(resp.Results)
	case state.Generate != nil:
		resp.GeneratedRecords = nonNilRecords(state.Generate.GeneratedRecords)
		resp.Count = len(resp.GeneratedRecords)
		resp.CollectionName = state.Generate.CollectionName
	}
	return c.JSON(resp)
}

func badBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: ErrorBody{
		Kind:   "validation_error",
		Stage:  "request",
		Detail: fmt.Sprintf("invalid request body: %v", err),
	}})
}
