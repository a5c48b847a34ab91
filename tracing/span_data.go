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

package tracing

// SpanData describes what a span captures.
type SpanData interface {
	// Type returns the type of the span.
	Type() string

	// Export returns a map representation of the span data.
	Export() map[string]any
}

// GenerationSpanData captures a single LLM call: the model, the prompt,
// the raw output and token usage.
type GenerationSpanData struct {
	Model  string
	Input  string
	Output string
	Usage  map[string]any
}

func (GenerationSpanData) Type() string { return "generation" }

func (d *GenerationSpanData) Export() map[string]any {
	return map[string]any{
		"type":   d.Type(),
		"model":  d.Model,
		"input":  d.Input,
		"output": d.Output,
		"usage":  d.Usage,
	}
}

// StageSpanData captures one stage of the story pipeline, e.g. routing,
// a content generator, or a refinement iteration.
type StageSpanData struct {
	Name string
	Mode string
}

func (StageSpanData) Type() string { return "stage" }

func (d *StageSpanData) Export() map[string]any {
	return map[string]any{
		"type": d.Type(),
		"name": d.Name,
		"mode": d.Mode,
	}
}

// CustomSpanData captures arbitrary user-defined information.
type CustomSpanData struct {
	Name string
	Data map[string]any
}

func (CustomSpanData) Type() string { return "custom" }

func (d *CustomSpanData) Export() map[string]any {
	return map[string]any{
		"type": d.Type(),
		"name": d.Name,
		"data": d.Data,
	}
}
