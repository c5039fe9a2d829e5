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

package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/poiesic/datagen/core"
)

// statusFor maps an error kind to an HTTP status code.
func statusFor(kind string) int {
	switch kind {
	case "validation_error":
		return fiber.StatusBadRequest
	case "collection_not_found":
		return fiber.StatusNotFound
	case "generation_parse_error", "generation_error", "embedding_error":
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	kind := core.KindOf(err)
	return c.Status(statusFor(kind)).JSON(ErrorResponse{Error: ErrorBody{
		Kind:   kind,
		Stage:  core.StageOf(err),
		Detail: err.Error(),
	}})
}

// errorHandler renders errors that escape a handler, such as unknown routes
// and recovered panics, in the same envelope as pipeline errors.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := "internal_error"
		switch fe.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			kind = "not_found"
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
			kind = "validation_error"
		}
		return c.Status(fe.Code).JSON(ErrorResponse{Error: ErrorBody{Kind: kind, Detail: fe.Message}})
	}
	return writeError(c, err)
}
