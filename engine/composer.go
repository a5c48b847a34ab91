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
	"fmt"
	"strings"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/asynctask"
	"github.com/nlpodyssey/storycrafter/story"
	"github.com/nlpodyssey/storycrafter/tracing"
)

// FanInError aggregates failures from the parallel content generators.
// The prose writer is never invoked when any generator failed.
type FanInError struct {
	// Stages names the failed generators.
	Stages []string
	Errs   []error
}

func (e *FanInError) Error() string {
	return fmt.Sprintf("parallel content generation failed in: %s", strings.Join(e.Stages, ", "))
}

func (e *FanInError) Unwrap() []error { return e.Errs }

// PipelineParams selects the stage composition for one turn.
type PipelineParams struct {
	Mode Mode

	// EnableRefinement adds the critique-revise loop after the prose
	// writer. Only meaningful in create mode.
	EnableRefinement bool

	// RefinementCap bounds the loop. Zero means DefaultRefinementCap.
	RefinementCap int
}

// Composer builds pipelines. Every BuildPipeline call constructs fresh
// stage agents: reusing stage instances across turns causes context bleed
// between independent generations.
type Composer struct {
	Runner agents.Runner
}

// Pipeline is one turn's stage composition, holding per-turn agent
// instances. It must not be reused across turns.
type Pipeline struct {
	runner agents.Runner
	params PipelineParams

	intent        *agents.Agent
	worldbuilder  *agents.Agent
	characterForg *agents.Agent
	plotArchitect *agents.Agent
	writer        *agents.Agent
	critic        *agents.Agent
	refiner       *agents.Agent
	editor        *agents.Agent
	guide         *agents.Agent
}

func (c Composer) BuildPipeline(params PipelineParams) *Pipeline {
	p := &Pipeline{runner: c.Runner, params: params}
	switch params.Mode {
	case ModeEdit:
		p.editor = NewStoryEditorAgent()
	case ModeQuestion:
		p.guide = NewStoryGuideAgent()
	default:
		p.intent = NewUserIntentAgent()
		p.worldbuilder = NewWorldbuilderAgent()
		p.characterForg = NewCharacterForgeAgent()
		p.plotArchitect = NewPlotArchitectAgent()
		p.writer = NewStoryWriterAgent()
		if params.EnableRefinement {
			p.critic = NewQualityCriticAgent()
			p.refiner = NewStoryRefinerAgent()
		}
	}
	return p
}

// PipelineResult is the outcome of one pipeline run.
type PipelineResult struct {
	// StoryText is the new current story. Empty for question turns,
	// which never mutate the story.
	StoryText string

	// Output is the user-visible text of the turn: the story for create
	// and edit turns, the guide's answer for question turns.
	Output string
}

// Run executes the pipeline over the prepared user input, emitting
// progress events as stages complete.
func (p *Pipeline) Run(ctx context.Context, input string, emit func(StoryStreamEvent)) (PipelineResult, error) {
	switch p.params.Mode {
	case ModeEdit:
		return p.runEdit(ctx, input, emit)
	case ModeQuestion:
		return p.runQuestion(ctx, input, emit)
	default:
		return p.runCreate(ctx, input, emit)
	}
}

func (p *Pipeline) runEdit(ctx context.Context, input string, emit func(StoryStreamEvent)) (PipelineResult, error) {
	emit(StatusEvent{Author: "editor", Message: "Preparing to edit story..."})

	var text string
	err := tracing.StageSpan(ctx, tracing.StageSpanParams{Name: "story_editor", Mode: string(ModeEdit)},
		func(ctx context.Context, _ tracing.Span) error {
			result, err := p.runner.Run(ctx, p.editor, input)
			if err != nil {
				return err
			}
			text = strings.TrimSpace(result.TextOutput)
			return nil
		})
	if err != nil {
		return PipelineResult{}, err
	}

	emit(EditedEvent{Text: text})
	return PipelineResult{StoryText: text, Output: text}, nil
}

func (p *Pipeline) runQuestion(ctx context.Context, input string, emit func(StoryStreamEvent)) (PipelineResult, error) {
	emit(StatusEvent{Author: "guide", Message: "Consulting the story guide..."})

	var answer string
	err := tracing.StageSpan(ctx, tracing.StageSpanParams{Name: "story_guide", Mode: string(ModeQuestion)},
		func(ctx context.Context, _ tracing.Span) error {
			result, err := p.runner.Run(ctx, p.guide, input)
			if err != nil {
				return err
			}
			answer = strings.TrimSpace(result.TextOutput)
			return nil
		})
	if err != nil {
		return PipelineResult{}, err
	}

	emit(AnswerEvent{Text: answer})
	// Question turns never mutate the current story.
	return PipelineResult{Output: answer}, nil
}

func (p *Pipeline) runCreate(ctx context.Context, input string, emit func(StoryStreamEvent)) (PipelineResult, error) {
	emit(StatusEvent{Author: "user_intent", Message: "Extracting story intent..."})

	var intent story.UserIntent
	err := tracing.StageSpan(ctx, tracing.StageSpanParams{Name: "user_intent", Mode: string(ModeCreate)},
		func(ctx context.Context, _ tracing.Span) error {
			result, err := p.runner.Run(ctx, p.intent, input)
			if err != nil {
				return err
			}
			var ok bool
			intent, ok = result.FinalOutput.(story.UserIntent)
			if !ok {
				return agents.ModelBehaviorErrorf("intent agent returned unexpected output type %T", result.FinalOutput)
			}
			return nil
		})
	if err != nil {
		return PipelineResult{}, err
	}

	emit(StatusEvent{Author: "generators", Message: "Generating world, characters and plot..."})

	world, characters, plot, err := p.generateContent(ctx, intent)
	if err != nil {
		return PipelineResult{}, err
	}

	emit(StatusEvent{Author: "generators", Message: "World, characters and plot ready"})
	emit(StatusEvent{Author: "story_writer", Message: "Writing the story..."})

	var draft story.Draft
	err = tracing.StageSpan(ctx, tracing.StageSpanParams{Name: "story_writer", Mode: string(ModeCreate)},
		func(ctx context.Context, _ tracing.Span) error {
			result, err := p.runner.Run(ctx, p.writer, writerInput(intent, world, characters, plot))
			if err != nil {
				return err
			}
			var ok bool
			draft, ok = result.FinalOutput.(story.Draft)
			if !ok {
				return agents.ModelBehaviorErrorf("writer agent returned unexpected output type %T", result.FinalOutput)
			}
			return nil
		})
	if err != nil {
		return PipelineResult{}, err
	}
	draft.Normalize()
	emit(DraftEvent{Draft: draft})

	if p.params.EnableRefinement {
		loop := &RefinementLoop{
			Runner:        p.runner,
			Critic:        p.critic,
			Refiner:       p.refiner,
			MaxIterations: p.params.RefinementCap,
		}
		err = tracing.StageSpan(ctx, tracing.StageSpanParams{Name: "quality_loop", Mode: string(ModeCreate)},
			func(ctx context.Context, _ tracing.Span) error {
				draft, err = loop.Refine(ctx, draft, emit)
				return err
			})
		if err != nil {
			return PipelineResult{}, err
		}
	}

	return PipelineResult{StoryText: draft.Text, Output: draft.Text}, nil
}

// generateContent fans out the three content generators and joins them.
// All three artifacts must be present before the prose writer runs: any
// failure aggregates into a FanInError and the writer is not invoked.
func (p *Pipeline) generateContent(ctx context.Context, intent story.UserIntent) (story.WorldModel, story.CharacterModel, story.PlotModel, error) {
	input := generatorInput(intent)

	var (
		world      story.WorldModel
		characters story.CharacterModel
		plot       story.PlotModel
	)

	stages := []struct {
		name   string
		agent  *agents.Agent
		assign func(output any) bool
	}{
		{
			name:  "worldbuilder",
			agent: p.worldbuilder,
			assign: func(output any) bool {
				v, ok := output.(story.WorldModel)
				world = v
				return ok
			},
		},
		{
			name:  "character_forge",
			agent: p.characterForg,
			assign: func(output any) bool {
				v, ok := output.(story.CharacterModel)
				characters = v
				return ok
			},
		},
		{
			name:  "plot_architect",
			agent: p.plotArchitect,
			assign: func(output any) bool {
				v, ok := output.(story.PlotModel)
				plot = v
				return ok
			},
		},
	}

	tasks := make([]*asynctask.TaskNoValue, len(stages))
	for i, stage := range stages {
		tasks[i] = asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
			return tracing.StageSpan(ctx, tracing.StageSpanParams{Name: stage.name, Mode: string(ModeCreate)},
				func(ctx context.Context, _ tracing.Span) error {
					result, err := p.runner.Run(ctx, stage.agent, input)
					if err != nil {
						return err
					}
					if !stage.assign(result.FinalOutput) {
						return agents.ModelBehaviorErrorf("%s returned unexpected output type %T", stage.name, result.FinalOutput)
					}
					return nil
				})
		})
	}

	fanIn := &FanInError{}
	for i, stage := range stages {
		if err := tasks[i].Await().Error; err != nil {
			fanIn.Stages = append(fanIn.Stages, stage.name)
			fanIn.Errs = append(fanIn.Errs, err)
		}
	}
	if len(fanIn.Stages) > 0 {
		return story.WorldModel{}, story.CharacterModel{}, story.PlotModel{}, fanIn
	}
	return world, characters, plot, nil
}

func generatorInput(intent story.UserIntent) string {
	return "STORY INTENT:\n" + mustJSON(intent)
}

func writerInput(intent story.UserIntent, world story.WorldModel, characters story.CharacterModel, plot story.PlotModel) string {
	return fmt.Sprintf(
		"STORY INTENT:\n%s\n\nWORLD:\n%s\n\nCHARACTERS:\n%s\n\nPLOT:\n%s",
		mustJSON(intent), mustJSON(world), mustJSON(characters), mustJSON(plot),
	)
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}
