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

package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/story"
)

// Mode selects which stage composition runs for a turn.
type Mode string

const (
	ModeCreate   Mode = "create"
	ModeEdit     Mode = "edit"
	ModeQuestion Mode = "question"
)

// Router classifies a user turn into a Mode.
//
// Route is total: it always resolves to one of the three modes and never
// fails. When there is no existing story it short-circuits to create
// without invoking the classifier.
type Router struct {
	Runner agents.Runner
}

func (r Router) Route(ctx context.Context, userText string, hasStory bool) Mode {
	if !hasStory {
		return ModeCreate
	}

	result, err := r.Runner.Run(ctx, NewRouterAgent(), "User Input: "+userText)
	if err != nil {
		agents.Logger().Warn("router agent failed, defaulting to create", "error", err)
		return ModeCreate
	}
	return parseMode(result.TextOutput)
}

// parseMode resolves the router's raw response to a Mode through a
// deterministic fallback chain: strict JSON, then lenient JSON, then
// substring matching on the three decision tokens, then create.
func parseMode(response string) Mode {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "{") {
		var decision story.RoutingDecision
		if err := json.Unmarshal([]byte(response), &decision); err == nil {
			if mode, ok := decisionToMode(decision.Decision); ok {
				return mode
			}
		}

		var raw map[string]any
		if err := json.Unmarshal([]byte(response), &raw); err == nil {
			if s, ok := raw["decision"].(string); ok {
				if mode, ok := decisionToMode(story.Decision(s)); ok {
					return mode
				}
			}
			return ModeCreate
		}
	}

	switch {
	case strings.Contains(response, string(story.DecisionEditStory)):
		return ModeEdit
	case strings.Contains(response, string(story.DecisionQuestion)):
		return ModeQuestion
	case strings.Contains(response, string(story.DecisionNewStory)):
		return ModeCreate
	}
	return ModeCreate
}

func decisionToMode(d story.Decision) (Mode, bool) {
	switch d {
	case story.DecisionNewStory:
		return ModeCreate, true
	case story.DecisionEditStory:
		return ModeEdit, true
	case story.DecisionQuestion:
		return ModeQuestion, true
	}
	return "", false
}
