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
	"context"
	"log/slog"
	"reflect"

	"github.com/nlpodyssey/storycrafter/usage"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared/constant"
)

// OpenAIChatCompletionsModel calls the OpenAI Chat Completions API,
// constraining the response to a JSON schema when an output type is given.
type OpenAIChatCompletionsModel struct {
	Model  openai.ChatModel
	client *openai.Client
}

func NewOpenAIChatCompletionsModel(model openai.ChatModel, client *openai.Client) OpenAIChatCompletionsModel {
	return OpenAIChatCompletionsModel{
		Model:  model,
		client: client,
	}
}

func (m OpenAIChatCompletionsModel) GetResponse(
	ctx context.Context,
	params ModelCallParams,
) (*ModelResponse, error) {
	body, opts, err := m.prepareRequest(params)
	if err != nil {
		return nil, err
	}

	response, err := m.client.Chat.Completions.New(ctx, *body, opts...)
	if err != nil {
		return nil, ClassifyModelError(err)
	}
	if len(response.Choices) == 0 {
		return nil, NewModelBehaviorError("model returned no choices")
	}

	message := response.Choices[0].Message
	if DontLogModelData {
		Logger().Debug("LLM responded")
	} else {
		Logger().Debug("LLM responded", slog.String("message", message.Content))
	}

	u := usage.NewUsage()
	if !reflect.ValueOf(response.Usage).IsZero() {
		u.Requests = 1
		u.InputTokens = uint64(response.Usage.PromptTokens)
		u.OutputTokens = uint64(response.Usage.CompletionTokens)
		u.TotalTokens = uint64(response.Usage.TotalTokens)
	}

	return &ModelResponse{
		Text:  message.Content,
		Usage: u,
	}, nil
}

func (m OpenAIChatCompletionsModel) prepareRequest(
	params ModelCallParams,
) (*openai.ChatCompletionNewParams, []option.RequestOption, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if params.SystemInstructions != "" {
		messages = append(messages, openai.SystemMessage(params.SystemInstructions))
	}
	messages = append(messages, openai.UserMessage(params.Input))

	responseFormat, err := convertResponseFormat(params.OutputType)
	if err != nil {
		return nil, nil, err
	}

	if DontLogModelData {
		Logger().Debug("Calling LLM", slog.String("model", string(m.Model)))
	} else {
		Logger().Debug(
			"Calling LLM",
			slog.String("model", string(m.Model)),
			slog.String("messages", SimplePrettyJSONMarshal(messages)),
			slog.String("response format", SimplePrettyJSONMarshal(responseFormat)),
		)
	}

	settings := params.ModelSettings
	body := &openai.ChatCompletionNewParams{
		Model:            m.Model,
		Messages:         messages,
		Temperature:      settings.Temperature,
		TopP:             settings.TopP,
		FrequencyPenalty: settings.FrequencyPenalty,
		PresencePenalty:  settings.PresencePenalty,
		MaxTokens:        settings.MaxTokens,
		ResponseFormat:   responseFormat,
		Metadata:         settings.Metadata,
	}

	var opts []option.RequestOption
	for k, v := range settings.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	return body, opts, nil
}

func convertResponseFormat(
	outputType OutputTypeInterface,
) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	if outputType == nil || outputType.IsPlainText() {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, nil
	}
	schema, err := outputType.JSONSchema()
	if err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, err
	}

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   "final_output",
				Strict: param.NewOpt(outputType.IsStrictJSONSchema()),
				Schema: schema,
			},
			Type: constant.ValueOf[constant.JSONSchema](),
		},
	}, nil
}
