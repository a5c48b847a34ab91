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

package modelsettings

import (
	"maps"

	"github.com/openai/openai-go/v3/packages/param"
)

// ModelSettings holds settings to use when calling an LLM.
//
// This type holds optional model configuration parameters (e.g. temperature,
// top-p, penalties, max tokens).
//
// Not all models/providers support all of these parameters, so please check
// the API documentation for the specific model and provider you are using.
type ModelSettings struct {
	// The temperature to use when calling the model.
	Temperature param.Opt[float64] `json:"temperature"`

	// The top_p to use when calling the model.
	TopP param.Opt[float64] `json:"top_p"`

	// The frequency penalty to use when calling the model.
	FrequencyPenalty param.Opt[float64] `json:"frequency_penalty"`

	// The presence penalty to use when calling the model.
	PresencePenalty param.Opt[float64] `json:"presence_penalty"`

	// The maximum number of output tokens to generate.
	MaxTokens param.Opt[int64] `json:"max_tokens"`

	// Optional metadata to include with the model response call.
	Metadata map[string]string `json:"metadata"`

	// Optional additional headers to provide with the request.
	ExtraHeaders map[string]string `json:"extra_headers"`
}

// Resolve produces a new ModelSettings by overlaying any non-zero values
// from the override on top of this instance.
func (ms ModelSettings) Resolve(override ModelSettings) ModelSettings {
	resolved := ms
	if override.Temperature.Valid() {
		resolved.Temperature = override.Temperature
	}
	if override.TopP.Valid() {
		resolved.TopP = override.TopP
	}
	if override.FrequencyPenalty.Valid() {
		resolved.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.PresencePenalty.Valid() {
		resolved.PresencePenalty = override.PresencePenalty
	}
	if override.MaxTokens.Valid() {
		resolved.MaxTokens = override.MaxTokens
	}
	if override.Metadata != nil {
		resolved.Metadata = maps.Clone(override.Metadata)
	}
	if override.ExtraHeaders != nil {
		resolved.ExtraHeaders = maps.Clone(override.ExtraHeaders)
	}
	return resolved
}
