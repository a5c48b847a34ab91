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
	"cmp"
	"context"
	"strings"

	"github.com/nlpodyssey/storycrafter/tracing"
	"github.com/nlpodyssey/storycrafter/usage"
)

// DefaultModel is used when neither the agent nor the runner names a model.
const DefaultModel = "gpt-4o-mini"

// Runner executes a single agent call: one prompt in, one (optionally
// structured and validated) output out.
type Runner struct {
	// Provider resolves model names. When nil, a default OpenAIProvider
	// is used.
	Provider ModelProvider

	// Model is the default model name for agents that don't set one.
	Model string
}

// RunResult is the outcome of a single agent run.
type RunResult struct {
	// FinalOutput is the validated structured output, or the raw text for
	// plain text agents.
	FinalOutput any

	// TextOutput is the raw text of the model response.
	TextOutput string

	// Usage is the token accounting for this run.
	Usage *usage.Usage
}

// Run calls the agent's model with the given input and returns the final
// output. For agents with a structured output type, the model response is
// validated against the JSON schema before being returned.
//
// If the context carries a usage.Usage accumulator, this run's usage is
// added to it.
func (r Runner) Run(ctx context.Context, agent *Agent, input string) (*RunResult, error) {
	if agent == nil {
		return nil, NewUserError("agent must not be nil")
	}

	provider := r.Provider
	if provider == nil {
		provider = NewOpenAIProvider(OpenAIProviderParams{})
	}

	modelName := cmp.Or(agent.Model, r.Model, DefaultModel)
	model, err := provider.GetModel(modelName)
	if err != nil {
		return nil, err
	}

	var result *RunResult
	err = tracing.GenerationSpan(
		ctx,
		tracing.GenerationSpanParams{Model: modelName, Input: input},
		func(ctx context.Context, span tracing.Span) error {
			response, err := model.GetResponse(ctx, ModelCallParams{
				SystemInstructions: agent.Instructions,
				Input:              input,
				ModelSettings:      agent.ModelSettings,
				OutputType:         agent.OutputType,
			})
			if err != nil {
				span.SetError(tracing.SpanError{
					Message: "Error getting response",
					Data:    map[string]any{"agent": agent.Name, "error": err.Error()},
				})
				return err
			}

			if data, ok := span.SpanData().(*tracing.GenerationSpanData); ok {
				data.Output = response.Text
				if response.Usage != nil {
					data.Usage = map[string]any{
						"prompt_tokens":     int(response.Usage.InputTokens),
						"completion_tokens": int(response.Usage.OutputTokens),
						"total_tokens":      int(response.Usage.TotalTokens),
					}
				}
			}

			if accumulator, ok := usage.FromContext(ctx); ok {
				accumulator.Add(response.Usage)
			}

			result = &RunResult{
				TextOutput: response.Text,
				Usage:      response.Usage,
			}

			if agent.OutputType != nil && !agent.OutputType.IsPlainText() {
				finalOutput, err := agent.OutputType.ValidateJSON(ctx, response.Text)
				if err != nil {
					span.SetError(tracing.SpanError{
						Message: "Invalid JSON output",
						Data:    map[string]any{"agent": agent.Name, "error": err.Error()},
					})
					return err
				}
				result.FinalOutput = finalOutput
			} else {
				result.FinalOutput = strings.TrimSpace(response.Text)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}
