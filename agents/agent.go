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
	"github.com/nlpodyssey/storycrafter/modelsettings"
)

// Agent is a single LLM stage: a name, a system prompt, an optional model
// override and an optional structured output type. Agents are cheap value
// objects; construct a fresh one per pipeline run rather than sharing.
type Agent struct {
	// The Name of the agent, used for logging and tracing.
	Name string

	// Instructions are used as the system prompt for every call.
	Instructions string

	// Model is the model name to use. When empty, the Runner's default
	// model is used.
	Model string

	// ModelSettings overrides request parameters such as temperature.
	ModelSettings modelsettings.ModelSettings

	// OutputType describes the structured output, if any. A nil value
	// means plain text output.
	OutputType OutputTypeInterface
}

// New creates a new Agent with the given name.
//
// The returned Agent can be further configured using the builder methods.
func New(name string) *Agent {
	return &Agent{Name: name}
}

// WithInstructions sets the Agent instructions.
func (a *Agent) WithInstructions(instructions string) *Agent {
	a.Instructions = instructions
	return a
}

// WithModel sets the model to use by name.
func (a *Agent) WithModel(name string) *Agent {
	a.Model = name
	return a
}

// WithModelSettings sets model-specific settings.
func (a *Agent) WithModelSettings(settings modelsettings.ModelSettings) *Agent {
	a.ModelSettings = settings
	return a
}

// WithOutputType sets the structured output type.
func (a *Agent) WithOutputType(t OutputTypeInterface) *Agent {
	a.OutputType = t
	return a
}

// Clone returns a shallow copy of the agent with the given overrides applied.
func (a *Agent) Clone(mutate func(*Agent)) *Agent {
	clone := *a
	if mutate != nil {
		mutate(&clone)
	}
	return &clone
}
