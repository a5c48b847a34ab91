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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routingDecision struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning"`
}

func TestOutputTypePlainText(t *testing.T) {
	outputType := agents.OutputType[string]()
	assert.True(t, outputType.IsPlainText())

	_, err := outputType.JSONSchema()
	assert.Error(t, err)

	_, err = outputType.ValidateJSON(t.Context(), `"hello"`)
	assert.Error(t, err)
}

func TestOutputTypeStruct(t *testing.T) {
	outputType := agents.OutputType[routingDecision]()
	assert.False(t, outputType.IsPlainText())
	assert.True(t, outputType.IsStrictJSONSchema())

	schema, err := outputType.JSONSchema()
	require.NoError(t, err)
	assert.Equal(t, false, schema["additionalProperties"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "decision")
	assert.Contains(t, properties, "reasoning")

	t.Run("valid JSON round trips", func(t *testing.T) {
		out, err := outputType.ValidateJSON(t.Context(), `{"decision":"NEW_STORY","reasoning":"no story yet"}`)
		require.NoError(t, err)
		decision, ok := out.(routingDecision)
		require.True(t, ok)
		assert.Equal(t, "NEW_STORY", decision.Decision)
	})

	t.Run("missing property fails validation", func(t *testing.T) {
		_, err := outputType.ValidateJSON(t.Context(), `{"decision":"NEW_STORY"}`)
		require.Error(t, err)
		var schemaErr *agents.SchemaValidationError
		assert.ErrorAs(t, err, &schemaErr)
	})

	t.Run("malformed JSON fails validation", func(t *testing.T) {
		_, err := outputType.ValidateJSON(t.Context(), `{"decision":`)
		assert.Error(t, err)
	})
}

func TestOutputTypeWrapsNonStruct(t *testing.T) {
	outputType := agents.OutputType[[]string]()
	assert.False(t, outputType.IsPlainText())

	out, err := outputType.ValidateJSON(t.Context(), `{"response":["a","b"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestEnsureStrictJSONSchema(t *testing.T) {
	t.Run("empty schema becomes empty object schema", func(t *testing.T) {
		schema, err := agents.EnsureStrictJSONSchema(map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "object", schema["type"])
		assert.Equal(t, false, schema["additionalProperties"])
	})

	t.Run("objects require all their properties", func(t *testing.T) {
		schema, err := agents.EnsureStrictJSONSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"text":  map[string]any{"type": "string"},
			},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"title", "text"}, schema["required"])
		assert.Equal(t, false, schema["additionalProperties"])
	})

	t.Run("additionalProperties true is rejected", func(t *testing.T) {
		_, err := agents.EnsureStrictJSONSchema(map[string]any{
			"type":                 "object",
			"additionalProperties": true,
		})
		assert.Error(t, err)
	})

	t.Run("refs with siblings are unraveled", func(t *testing.T) {
		schema, err := agents.EnsureStrictJSONSchema(map[string]any{
			"$defs": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"type": "object",
			"properties": map[string]any{
				"hero": map[string]any{
					"$ref":        "#/$defs/name",
					"description": "the protagonist",
				},
			},
		})
		require.NoError(t, err)
		properties := schema["properties"].(map[string]any)
		hero := properties["hero"].(map[string]any)
		assert.NotContains(t, hero, "$ref")
		assert.Equal(t, "string", hero["type"])
		assert.Equal(t, "the protagonist", hero["description"])
	})
}

func TestClassifyModelError(t *testing.T) {
	assert.NoError(t, agents.ClassifyModelError(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, agents.ClassifyModelError(plain))
}
