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

// Package openai generates and embeds product reviews through
// OpenAI-compatible endpoints (OpenAI, Ollama's /v1, LocalAI, vLLM) using
// langchaingo.
//
// Generation and embeddings can point at different hosts:
//
//	config := ai.NewConfig(
//	    ai.WithGeneratorHost("http://gpu-box:8000"), // /v1 added automatically
//	    ai.WithEmbeddingHost("http://localhost:11434"),
//	    ai.WithGeneratorModel("qwen2.5:3b"),
//	    ai.WithEmbeddingModel("all-minilm"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	raw, err := provider.Generator().Complete(ctx, prompt)
//	vecs, err := provider.Embedder().EmbedTexts(ctx, reviews)
//
// Model output is returned verbatim; parsing it into records belongs to the
// pipeline.
package openai
