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

// Package agentstesting provides fake models for testing agent pipelines
// without calling a real LLM API.
package agentstesting

import (
	"context"
	"sync"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/usage"
)

// FakeModelTurn is one scripted model response.
type FakeModelTurn struct {
	Text string
	Err  error
}

// FakeModel implements agents.Model with scripted responses.
//
// Responses are produced either by the Respond hook, when set, or by
// consuming the queued turns in order. The model records every call it
// receives, so tests can assert on prompts.
type FakeModel struct {
	mu sync.Mutex

	// Respond, when set, computes the response for each call. It takes
	// precedence over the queued turns.
	Respond func(params agents.ModelCallParams) (string, error)

	turns []FakeModelTurn

	// Calls records the parameters of every GetResponse call, in order.
	Calls []agents.ModelCallParams
}

func NewFakeModel(turns ...FakeModelTurn) *FakeModel {
	return &FakeModel{turns: turns}
}

// QueueText appends a scripted text response.
func (m *FakeModel) QueueText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, FakeModelTurn{Text: text})
}

// QueueError appends a scripted error.
func (m *FakeModel) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, FakeModelTurn{Err: err})
}

func (m *FakeModel) GetResponse(_ context.Context, params agents.ModelCallParams) (*agents.ModelResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, params)
	respond := m.Respond
	var turn FakeModelTurn
	if respond == nil {
		if len(m.turns) == 0 {
			m.mu.Unlock()
			return nil, agents.NewModelBehaviorError("fake model has no scripted response left")
		}
		turn = m.turns[0]
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	var text string
	var err error
	if respond != nil {
		text, err = respond(params)
	} else {
		text, err = turn.Text, turn.Err
	}
	if err != nil {
		return nil, err
	}

	u := usage.NewUsage()
	u.Requests = 1
	u.InputTokens = uint64(len(params.Input))
	u.OutputTokens = uint64(len(text))
	u.TotalTokens = u.InputTokens + u.OutputTokens

	return &agents.ModelResponse{Text: text, Usage: u}, nil
}

// FakeModelProvider implements agents.ModelProvider, returning the same
// FakeModel for every model name.
type FakeModelProvider struct {
	Model *FakeModel
}

func (p FakeModelProvider) GetModel(string) (agents.Model, error) {
	return p.Model, nil
}
