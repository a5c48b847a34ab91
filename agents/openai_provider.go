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

package agents

import (
	"cmp"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultMaxRetries is the retry budget for rate-limit and server errors.
// The client retries with exponential backoff before a call fails.
const DefaultMaxRetries = 3

type OpenAIProviderParams struct {
	// The API key to use for the OpenAI client. If not provided, the
	// OPENAI_API_KEY environment variable is used.
	APIKey string

	// The base URL to use for the OpenAI client. If not provided, the
	// default base URL is used.
	BaseURL string

	// The organization to use for the OpenAI client.
	Organization string

	// The project to use for the OpenAI client.
	Project string

	// MaxRetries overrides DefaultMaxRetries when positive.
	MaxRetries int

	// An optional OpenAI client to use. If not provided, a new client is
	// created from the other parameters.
	OpenaiClient *openai.Client
}

type OpenAIProvider struct {
	params OpenAIProviderParams
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(params OpenAIProviderParams) *OpenAIProvider {
	if params.OpenaiClient != nil && (params.APIKey != "" || params.BaseURL != "") {
		panic(errors.New("OpenAIProvider: don't provide APIKey or BaseURL if you provide OpenaiClient"))
	}
	return &OpenAIProvider{
		params: params,
		client: params.OpenaiClient,
	}
}

func (provider *OpenAIProvider) GetModel(modelName string) (Model, error) {
	if modelName == "" {
		return nil, fmt.Errorf("cannot get OpenAI model without a name")
	}
	return NewOpenAIChatCompletionsModel(modelName, provider.getClient()), nil
}

// We lazy load the client in case you never actually use OpenAIProvider.
func (provider *OpenAIProvider) getClient() *openai.Client {
	if provider.client == nil {
		apiKey := provider.params.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				Logger().Warn("OpenAIProvider: an API key is missing")
			}
		}

		options := []option.RequestOption{
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(cmp.Or(provider.params.MaxRetries, DefaultMaxRetries)),
		}
		if provider.params.BaseURL != "" {
			options = append(options, option.WithBaseURL(provider.params.BaseURL))
		}
		if provider.params.Organization != "" {
			options = append(options, option.WithOrganization(provider.params.Organization))
		}
		if provider.params.Project != "" {
			options = append(options, option.WithProject(provider.params.Project))
		}

		client := openai.NewClient(options...)
		provider.client = &client
	}
	return provider.client
}
