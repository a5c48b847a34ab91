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

package safety

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultPerspectiveURL = "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"

// PerspectiveScorer scores toxicity with Google's Perspective API.
type PerspectiveScorer struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
}

type PerspectiveScorerParams struct {
	// The Perspective API key. Required.
	APIKey string

	// Optional endpoint override, used in tests.
	BaseURL string

	// Optional language hint. Defaults to "en".
	Language string

	// Optional HTTP client. Defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

func NewPerspectiveScorer(params PerspectiveScorerParams) *PerspectiveScorer {
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PerspectiveScorer{
		apiKey:     params.APIKey,
		baseURL:    cmp.Or(params.BaseURL, defaultPerspectiveURL),
		language:   cmp.Or(params.Language, "en"),
		httpClient: httpClient,
	}
}

type perspectiveRequest struct {
	Comment             perspectiveComment                `json:"comment"`
	Languages           []string                          `json:"languages"`
	RequestedAttributes map[string]perspectiveAttributeIn `json:"requestedAttributes"`
}

type perspectiveComment struct {
	Text string `json:"text"`
}

type perspectiveAttributeIn struct{}

type perspectiveResponse struct {
	AttributeScores map[string]struct {
		SummaryScore struct {
			Value float64 `json:"value"`
		} `json:"summaryScore"`
	} `json:"attributeScores"`
}

func (s *PerspectiveScorer) ScoreToxicity(ctx context.Context, text string) (float64, error) {
	reqBody := perspectiveRequest{
		Comment:   perspectiveComment{Text: text},
		Languages: []string{s.language},
		RequestedAttributes: map[string]perspectiveAttributeIn{
			"TOXICITY": {},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("perspective: failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s?key=%s", s.baseURL, url.QueryEscape(s.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("perspective: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("perspective: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("perspective: request failed with status %d: %s", resp.StatusCode, errBody)
	}

	var parsed perspectiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("perspective: failed to decode response: %w", err)
	}
	return parsed.AttributeScores["TOXICITY"].SummaryScore.Value, nil
}
