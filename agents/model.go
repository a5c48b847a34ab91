// Copyright 2025 The NLP Odyssey Authors
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

package agents

import (
	"context"

	"github.com/nlpodyssey/storycrafter/modelsettings"
	"github.com/nlpodyssey/storycrafter/usage"
)

// ModelCallParams carries everything a Model needs to produce one response.
type ModelCallParams struct {
	// SystemInstructions is the system prompt. Empty means no system message.
	SystemInstructions string

	// Input is the user message content.
	Input string

	// ModelSettings tunes request parameters.
	ModelSettings modelsettings.ModelSettings

	// OutputType, when non-nil and not plain text, constrains the response
	// to its JSON schema.
	OutputType OutputTypeInterface
}

// ModelResponse is the canonical result of a single model call.
type ModelResponse struct {
	// Text is the raw text of the response. For structured outputs this is
	// the JSON string before validation.
	Text string

	// Usage is the token accounting for this single call.
	Usage *usage.Usage
}

// Model is the interface for calling an LLM.
type Model interface {
	GetResponse(ctx context.Context, params ModelCallParams) (*ModelResponse, error)
}

// ModelProvider resolves model names to Model instances.
type ModelProvider interface {
	GetModel(modelName string) (Model, error)
}
