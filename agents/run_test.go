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

package agents_test

import (
	"errors"
	"testing"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/agentstesting"
	"github.com/nlpodyssey/storycrafter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerPlainText(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurn{Text: "  Once upon a time.  "})
	runner := agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}}

	agent := agents.New("story_writer").WithInstructions("You write stories.")

	result, err := runner.Run(t.Context(), agent, "a story about dragons")
	require.NoError(t, err)
	assert.Equal(t, "Once upon a time.", result.FinalOutput)
	assert.Equal(t, "  Once upon a time.  ", result.TextOutput)

	require.Len(t, model.Calls, 1)
	assert.Equal(t, "You write stories.", model.Calls[0].SystemInstructions)
	assert.Equal(t, "a story about dragons", model.Calls[0].Input)
}

func TestRunnerStructuredOutput(t *testing.T) {
	model := agentstesting.NewFakeModel()
	runner := agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}}

	agent := agents.New("router").
		WithInstructions("Classify the request.").
		WithOutputType(agents.OutputType[routingDecision]())

	t.Run("valid output is parsed", func(t *testing.T) {
		model.QueueText(`{"decision":"EDIT_STORY","reasoning":"story exists"}`)

		result, err := runner.Run(t.Context(), agent, "make it longer")
		require.NoError(t, err)
		decision, ok := result.FinalOutput.(routingDecision)
		require.True(t, ok)
		assert.Equal(t, "EDIT_STORY", decision.Decision)
	})

	t.Run("invalid output is an error", func(t *testing.T) {
		model.QueueText(`{"unexpected":"shape"}`)

		_, err := runner.Run(t.Context(), agent, "make it longer")
		assert.Error(t, err)
	})
}

func TestRunnerAccumulatesUsage(t *testing.T) {
	model := agentstesting.NewFakeModel(
		agentstesting.FakeModelTurn{Text: "one"},
		agentstesting.FakeModelTurn{Text: "two"},
	)
	runner := agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}}
	agent := agents.New("writer")

	accumulator := usage.NewUsage()
	ctx := usage.NewContext(t.Context(), accumulator)

	_, err := runner.Run(ctx, agent, "first")
	require.NoError(t, err)
	_, err = runner.Run(ctx, agent, "second")
	require.NoError(t, err)

	assert.Equal(t, uint64(2), accumulator.Requests)
	assert.NotZero(t, accumulator.TotalTokens)
}

func TestRunnerErrors(t *testing.T) {
	t.Run("nil agent", func(t *testing.T) {
		runner := agents.Runner{Provider: agentstesting.FakeModelProvider{Model: agentstesting.NewFakeModel()}}
		_, err := runner.Run(t.Context(), nil, "input")
		assert.Error(t, err)
	})

	t.Run("model error propagates", func(t *testing.T) {
		model := agentstesting.NewFakeModel(agentstesting.FakeModelTurn{Err: errors.New("upstream failure")})
		runner := agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}}
		_, err := runner.Run(t.Context(), agents.New("writer"), "input")
		assert.ErrorContains(t, err, "upstream failure")
	})
}
