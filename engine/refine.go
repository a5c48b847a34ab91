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
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/story"
)

// DefaultRefinementCap bounds the critique-revise loop when no explicit
// cap is configured.
const DefaultRefinementCap = 3

// RefinementLoop runs the bounded critique-revise cycle over a draft.
//
// Each iteration critiques the current draft; an approval terminates the
// loop with no revision, otherwise the refiner replaces the draft
// wholesale and the loop continues. The loop terminates unconditionally
// after MaxIterations round trips, accepting the last draft even when it
// was never explicitly approved. Errors from either step abort the loop:
// no partial draft is silently treated as final.
type RefinementLoop struct {
	Runner agents.Runner

	// Critic and Refiner must be fresh per-turn instances.
	Critic  *agents.Agent
	Refiner *agents.Agent

	// MaxIterations caps the number of critique-revise round trips.
	// Zero means DefaultRefinementCap.
	MaxIterations int
}

// Refine runs the loop over draft, emitting a CritiqueEvent per verdict
// and a RefinedEvent per revision, and returns the final draft.
func (l *RefinementLoop) Refine(ctx context.Context, draft story.Draft, emit func(StoryStreamEvent)) (story.Draft, error) {
	maxIterations := cmp.Or(l.MaxIterations, DefaultRefinementCap)

	for iteration := 1; iteration <= maxIterations; iteration++ {
		critique, err := l.Runner.Run(ctx, l.Critic, critiqueInput(draft))
		if err != nil {
			return story.Draft{}, fmt.Errorf("critique failed at iteration %d: %w", iteration, err)
		}
		critiqueText := critique.TextOutput

		approved := critiqueApproved(critiqueText)
		emit(CritiqueEvent{
			Iteration: iteration,
			Feedback:  strings.TrimSpace(critiqueText),
			Approved:  approved,
		})
		if approved {
			break
		}

		revision, err := l.Runner.Run(ctx, l.Refiner, refineInput(critiqueText, draft))
		if err != nil {
			return story.Draft{}, fmt.Errorf("revision failed at iteration %d: %w", iteration, err)
		}
		revised, ok := revision.FinalOutput.(story.Draft)
		if !ok {
			return story.Draft{}, agents.ModelBehaviorErrorf("refiner returned unexpected output type %T", revision.FinalOutput)
		}
		revised.Normalize()

		draft = revised
		emit(RefinedEvent{Iteration: iteration, Draft: draft})
	}

	return draft, nil
}

// critiqueApproved reports whether the critic accepted the draft. The
// critic is instructed to answer with the single word APPROVED; any
// response containing that token counts as approval.
func critiqueApproved(critique string) bool {
	return strings.Contains(critique, string(story.FeedbackApproved))
}

func critiqueInput(draft story.Draft) string {
	return fmt.Sprintf("TITLE: %s\n\nSTORY:\n%s", draft.Title, draft.Text)
}

func refineInput(critique string, draft story.Draft) string {
	return fmt.Sprintf(
		"CRITIQUE:\n%s\n\nCURRENT STORY:\nTITLE: %s\n\n%s",
		strings.TrimSpace(critique), draft.Title, draft.Text,
	)
}
