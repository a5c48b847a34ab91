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

package evals

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/agentstesting"
	"github.com/nlpodyssey/storycrafter/engine"
	"github.com/nlpodyssey/storycrafter/safety"
)

func TestRunRouterEvals(t *testing.T) {
	// A degenerate router that always answers NEW_STORY passes exactly
	// the create cases.
	model := agentstesting.FakeModel{
		Respond: func(agents.ModelCallParams) (string, error) {
			return `{"decision": "NEW_STORY"}`, nil
		},
	}
	runner := Runner{Agents: agents.Runner{Provider: agentstesting.FakeModelProvider{Model: &model}}}

	summary := runner.RunRouterEvals(t.Context())

	wantPassed := 0
	for _, c := range RouterCases() {
		if c.ExpectedRoute == engine.ModeCreate {
			wantPassed++
		}
	}
	assert.Equal(t, len(RouterCases()), summary.TotalCases)
	assert.Equal(t, wantPassed, summary.PassedCases)
	assert.Equal(t, summary.TotalCases-wantPassed, summary.FailedCases)
	assert.InDelta(t, float64(wantPassed)/float64(summary.TotalCases), summary.PassRate, 1e-9)

	// The router receives the prefixed eval input.
	require.NotEmpty(t, model.Calls)
	assert.True(t, strings.HasPrefix(model.Calls[0].Input, "User Input: "))
}

func TestRunIntentEvals(t *testing.T) {
	fixed := `{"age": 7, "themes": ["a magical forest"], "tone": "calming", "genre": "bedtime", "length_minutes": 5, "safety_constraints": []}`
	model := agentstesting.FakeModel{
		Respond: func(agents.ModelCallParams) (string, error) { return fixed, nil },
	}
	runner := Runner{Agents: agents.Runner{Provider: agentstesting.FakeModelProvider{Model: &model}}}

	summary := runner.RunIntentEvals(t.Context())
	assert.Equal(t, len(IntentCases()), summary.TotalCases)

	byID := make(map[string]Result)
	for _, r := range summary.Results {
		byID[r.CaseID] = r
	}

	// The fixed answer matches intent_1 exactly.
	assert.True(t, byID["intent_1"].Passed)
	assert.Equal(t, 1.0, byID["intent_1"].Score)

	// intent_2 expects age 12: valid structure, mismatched fields.
	assert.False(t, byID["intent_2"].Passed)
	assert.Equal(t, 0.5, byID["intent_2"].Score)
}

func TestRunCasesRecordsAgentErrors(t *testing.T) {
	model := agentstesting.NewFakeModel() // no scripted responses
	runner := Runner{Agents: agents.Runner{Provider: agentstesting.FakeModelProvider{Model: model}}}

	summary := runner.RunCases(
		t.Context(),
		[]Case{{ID: "broken", Input: "hello", ExpectedRoute: engine.ModeCreate}},
		engine.NewRouterAgent,
		func(c Case) string { return c.Input },
		[]Metric{RouteAccuracy{}},
	)

	require.Len(t, summary.Results, 1)
	assert.False(t, summary.Results[0].Passed)
	assert.NotEmpty(t, summary.Results[0].Error)
	assert.Equal(t, 0, summary.PassedCases)
}

type keywordScorer struct{}

func (keywordScorer) ScoreToxicity(_ context.Context, text string) (float64, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "violence") || strings.Contains(lower, "gore") || strings.Contains(lower, "hate") {
		return 0.95, nil
	}
	return 0.05, nil
}

func TestRunSafetyEvals(t *testing.T) {
	gate := safety.NewGate(safety.GateParams{Scorer: keywordScorer{}})

	summary := RunSafetyEvals(t.Context(), gate)

	assert.Equal(t, len(SafetyCases()), summary.TotalCases)
	assert.Equal(t, summary.TotalCases, summary.PassedCases, "all safety cases should pass with the keyword scorer")
	assert.InDelta(t, 1.0, summary.PassRate, 1e-9)
}

func TestSummarySaveAndPrint(t *testing.T) {
	gate := safety.NewGate(safety.GateParams{Scorer: keywordScorer{}})
	summary := RunSafetyEvals(t.Context(), gate)

	dir := t.TempDir()
	path, err := summary.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Summary
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, summary.TotalCases, loaded.TotalCases)
	assert.Equal(t, summary.RunID, loaded.RunID)

	var sb strings.Builder
	summary.Print(&sb)
	assert.Contains(t, sb.String(), "Evaluation summary")
	assert.Contains(t, sb.String(), "Total cases")
}
