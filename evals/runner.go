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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nlpodyssey/storycrafter/agents"
	"github.com/nlpodyssey/storycrafter/engine"
	"github.com/nlpodyssey/storycrafter/safety"
	"github.com/nlpodyssey/storycrafter/story"
)

// Result is the outcome of running a single case.
type Result struct {
	CaseID    string         `json:"case_id"`
	Input     string         `json:"input"`
	Output    string         `json:"output"`
	Metrics   []MetricResult `json:"metrics"`
	LatencyMS float64        `json:"latency_ms"`
	Passed    bool           `json:"passed"`
	Score     float64        `json:"score"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Summary aggregates the results of one evaluation run.
type Summary struct {
	// Suite names the evaluated dataset, e.g. "router".
	Suite        string   `json:"suite,omitempty"`
	RunID        string   `json:"run_id"`
	TotalCases   int      `json:"total_cases"`
	PassedCases  int      `json:"passed_cases"`
	FailedCases  int      `json:"failed_cases"`
	PassRate     float64  `json:"pass_rate"`
	AvgScore     float64  `json:"avg_score"`
	AvgLatencyMS float64  `json:"avg_latency_ms"`
	Results      []Result `json:"results"`
}

// Runner executes evaluation cases against the pipeline stages.
type Runner struct {
	// Agents executes the stage agents under evaluation.
	Agents agents.Runner
}

// RunCases evaluates each case: a fresh agent from factory is run on
// buildInput(case) and every metric scores the raw output. A case passes
// when the agent succeeds and every metric passes.
func (r Runner) RunCases(
	ctx context.Context,
	cases []Case,
	factory func() *agents.Agent,
	buildInput func(Case) string,
	metrics []Metric,
) Summary {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		start := time.Now()

		var output string
		var runErr error
		if runResult, err := r.Agents.Run(ctx, factory(), buildInput(c)); err != nil {
			runErr = err
		} else {
			output = runResult.TextOutput
		}
		latency := time.Since(start)

		results = append(results, scoreCase(ctx, c, output, runErr, latency, metrics))
	}
	return summarize(results)
}

// RunRouterEvals evaluates request classification on the router dataset.
func (r Runner) RunRouterEvals(ctx context.Context) Summary {
	summary := r.RunCases(
		ctx,
		RouterCases(),
		engine.NewRouterAgent,
		func(c Case) string { return "User Input: " + c.Input },
		[]Metric{RouteAccuracy{}},
	)
	summary.Suite = "router"
	return summary
}

// RunIntentEvals evaluates intent extraction on the intent dataset.
func (r Runner) RunIntentEvals(ctx context.Context) Summary {
	summary := r.RunCases(
		ctx,
		IntentCases(),
		engine.NewUserIntentAgent,
		func(c Case) string { return c.Input },
		[]Metric{StructuredOutputValidity{OutputType: agents.OutputType[story.UserIntent]()}},
	)
	summary.Suite = "intent"
	return summary
}

// RunSafetyEvals evaluates the safety gate on the safety dataset. The gate
// is exercised directly; no agent is involved.
func RunSafetyEvals(ctx context.Context, gate *safety.Gate) Summary {
	metric := SafetyCompliance{}

	cases := SafetyCases()
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		start := time.Now()

		var output string
		var runErr error
		_, err := gate.Require(ctx, c.Input)
		var violation *safety.ViolationError
		switch {
		case err == nil:
			output = BehaviorPass
		case errors.As(err, &violation):
			output = fmt.Sprintf("%s: %s", BehaviorBlock, violation.Reason)
		default:
			runErr = err
		}
		latency := time.Since(start)

		results = append(results, scoreCase(ctx, c, output, runErr, latency, []Metric{metric}))
	}
	summary := summarize(results)
	summary.Suite = "safety"
	return summary
}

func scoreCase(ctx context.Context, c Case, output string, runErr error, latency time.Duration, metrics []Metric) Result {
	result := Result{
		CaseID:    c.ID,
		Input:     c.Input,
		Output:    output,
		LatencyMS: float64(latency) / float64(time.Millisecond),
		Timestamp: time.Now().UTC(),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	for _, metric := range metrics {
		result.Metrics = append(result.Metrics, metric.Evaluate(ctx, output, c))
	}

	result.Passed = runErr == nil
	var total float64
	for _, m := range result.Metrics {
		total += m.Score
		if !m.Passed {
			result.Passed = false
		}
	}
	if len(result.Metrics) > 0 {
		result.Score = total / float64(len(result.Metrics))
	}
	return result
}

func summarize(results []Result) Summary {
	summary := Summary{
		RunID:      time.Now().UTC().Format("20060102_150405"),
		TotalCases: len(results),
		Results:    results,
	}

	var totalScore, totalLatency float64
	for _, r := range results {
		if r.Passed {
			summary.PassedCases++
		}
		totalScore += r.Score
		totalLatency += r.LatencyMS
	}
	summary.FailedCases = summary.TotalCases - summary.PassedCases
	if summary.TotalCases > 0 {
		summary.PassRate = float64(summary.PassedCases) / float64(summary.TotalCases)
		summary.AvgScore = totalScore / float64(summary.TotalCases)
		summary.AvgLatencyMS = totalLatency / float64(summary.TotalCases)
	}
	return summary
}

// Save writes the summary as JSON to dir/eval_<run id>.json and returns
// the file path.
func (s Summary) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := s.RunID
	if s.Suite != "" {
		name = s.Suite + "_" + s.RunID
	}
	path := filepath.Join(dir, fmt.Sprintf("eval_%s.json", name))

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Print writes a human-readable report to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Evaluation summary %s %s\n", s.Suite, s.RunID)
	fmt.Fprintf(w, "  Total cases:  %d\n", s.TotalCases)
	fmt.Fprintf(w, "  Passed:       %d (%.1f%%)\n", s.PassedCases, s.PassRate*100)
	fmt.Fprintf(w, "  Failed:       %d\n", s.FailedCases)
	fmt.Fprintf(w, "  Avg score:    %.2f\n", s.AvgScore)
	fmt.Fprintf(w, "  Avg latency:  %.0fms\n", s.AvgLatencyMS)

	for _, r := range s.Results {
		if r.Passed {
			continue
		}
		fmt.Fprintf(w, "\nFAILED [%s] %s\n", r.CaseID, r.Input)
		if r.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", r.Error)
		}
		for _, m := range r.Metrics {
			if !m.Passed {
				fmt.Fprintf(w, "  %s: %s\n", m.MetricName, m.Details)
			}
		}
	}
}
