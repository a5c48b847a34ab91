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

// Package safety implements the content safety gate that runs before any
// generation work. It scores raw user input with an external toxicity
// scorer (Google's Perspective API) and produces a pass/block verdict.
//
// The gate never mutates session state; its only output is the verdict.
package safety

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// DefaultThreshold is the toxicity score above which input is blocked.
const DefaultThreshold = 0.7

// FailMode selects the gate's behavior when the scorer is unreachable or
// unconfigured.
type FailMode int

const (
	// FailOpen treats input as safe when no scorer is available.
	// This is the default, intended for development environments
	// without credentials.
	FailOpen FailMode = iota

	// FailClosed blocks every turn when no scorer is available.
	FailClosed
)

// Verdict is the outcome of a safety check.
type Verdict struct {
	Safe   bool    `json:"safe"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// ViolationError reports input that failed the toxicity check. It aborts
// the turn before any generation work is performed and is surfaced to the
// caller distinctly from generic stage failures.
type ViolationError struct {
	Score  float64
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("content rejected: %s", e.Reason)
}

// Scorer scores the toxicity of a text in [0, 1].
type Scorer interface {
	ScoreToxicity(ctx context.Context, text string) (float64, error)
}

// Gate checks user input against a toxicity threshold.
type Gate struct {
	scorer    Scorer
	threshold float64
	failMode  FailMode
	logger    *slog.Logger
}

type GateParams struct {
	// The scorer to use. If nil, the gate operates without a scorer and
	// the FailMode decides every verdict.
	Scorer Scorer

	// Toxicity score threshold in (0, 1]. Defaults to DefaultThreshold.
	Threshold float64

	// Behavior when no scorer is available. Defaults to FailOpen.
	FailMode FailMode

	// Optional logger. Defaults to slog.Default().
	Logger *slog.Logger
}

func NewGate(params GateParams) *Gate {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		scorer:    params.Scorer,
		threshold: cmp.Or(params.Threshold, DefaultThreshold),
		failMode:  params.FailMode,
		logger:    logger,
	}
}

// NewGateFromEnv builds a Gate from PERSPECTIVE_API_KEY,
// PERSPECTIVE_THRESHOLD and PERSPECTIVE_FAIL_CLOSED.
func NewGateFromEnv() *Gate {
	params := GateParams{}

	if apiKey := os.Getenv("PERSPECTIVE_API_KEY"); apiKey != "" {
		params.Scorer = NewPerspectiveScorer(PerspectiveScorerParams{APIKey: apiKey})
	}
	if v := os.Getenv("PERSPECTIVE_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			params.Threshold = threshold
		}
	}
	if v, _ := strconv.ParseBool(os.Getenv("PERSPECTIVE_FAIL_CLOSED")); v {
		params.FailMode = FailClosed
	}
	return NewGate(params)
}

// Threshold returns the configured toxicity threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Check scores text and produces a verdict. Input scored strictly above
// the threshold is blocked; input at or below it passes.
//
// When the scorer is missing or unreachable, FailOpen yields a passing
// verdict with a logged warning and FailClosed returns an error.
func (g *Gate) Check(ctx context.Context, text string) (Verdict, error) {
	if g.scorer == nil {
		if g.failMode == FailClosed {
			return Verdict{}, fmt.Errorf("safety gate: no toxicity scorer configured and fail mode is closed")
		}
		g.logger.Warn("safety gate: no toxicity scorer configured, skipping check")
		return Verdict{Safe: true, Score: 0, Reason: "no scorer configured"}, nil
	}

	score, err := g.scorer.ScoreToxicity(ctx, text)
	if err != nil {
		if g.failMode == FailClosed {
			return Verdict{}, fmt.Errorf("safety gate: toxicity scoring failed: %w", err)
		}
		g.logger.Warn("safety gate: toxicity scoring failed, passing input through", slog.String("error", err.Error()))
		return Verdict{Safe: true, Score: 0, Reason: "scorer unavailable"}, nil
	}

	if score > g.threshold {
		return Verdict{
			Safe:   false,
			Score:  score,
			Reason: fmt.Sprintf("toxicity score (%.2f) exceeds threshold (%.2f)", score, g.threshold),
		}, nil
	}
	return Verdict{Safe: true, Score: score, Reason: "safe"}, nil
}

// Require checks text and converts a blocking verdict into a
// *ViolationError.
func (g *Gate) Require(ctx context.Context, text string) (Verdict, error) {
	verdict, err := g.Check(ctx, text)
	if err != nil {
		return verdict, err
	}
	if !verdict.Safe {
		return verdict, &ViolationError{Score: verdict.Score, Reason: verdict.Reason}
	}
	return verdict, nil
}
