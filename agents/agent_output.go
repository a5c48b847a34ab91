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
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// OutputTypeInterface is implemented by an object that describes an agent's
// output type. Unless the output type is plain text (string), it captures
// the JSON schema of the output, as well as validating/parsing JSON produced
// by the LLM into the output type.
type OutputTypeInterface interface {
	// IsPlainText reports whether the output type is plain text (versus a JSON object).
	IsPlainText() bool

	// The Name of the output type.
	Name() string

	// JSONSchema returns the JSON schema of the output.
	// It will only be called if the output type is not plain text.
	JSONSchema() (map[string]any, error)

	// IsStrictJSONSchema reports whether the JSON schema is in strict mode.
	// Strict mode constrains the JSON schema features, but guarantees valid JSON.
	IsStrictJSONSchema() bool

	// ValidateJSON validates a JSON string against the output type.
	// It returns the validated object, or an error if the JSON is invalid.
	// It will only be called if the output type is not plain text.
	ValidateJSON(ctx context.Context, jsonStr string) (any, error)
}

type outputTypeImpl[T any] struct {
	// Whether the output type is wrapped in an object. This is done when the
	// base output type cannot be represented as a JSON Schema object.
	isWrapped bool

	outputSchema     map[string]any
	strictJSONSchema bool
	isPlainText      bool
	name             string
}

type wrappedOutputType[T any] struct {
	Response T `json:"response"`
}

// OutputType creates a new output type for T with default options (strict
// schema). It panics in case of errors. For a safer variant, see
// SafeOutputType.
func OutputType[T any]() OutputTypeInterface {
	result, err := SafeOutputType[T](defaultOutputTypeOpts)
	if err != nil {
		panic(err)
	}
	return result
}

type OutputTypeOpts struct {
	StrictJSONSchema bool
}

var defaultOutputTypeOpts = OutputTypeOpts{
	StrictJSONSchema: true,
}

// SafeOutputType creates a new output type for T with custom options.
func SafeOutputType[T any](opts OutputTypeOpts) (OutputTypeInterface, error) {
	var isWrapped bool
	var outputSchema map[string]any

	var zero T
	_, isPlainText := any(zero).(string)

	if isPlainText {
		outputSchema = map[string]any{"type": "string"}
	} else {
		// Wrap anything that would not be a JSON Schema object on its own.
		isWrapped = !isStruct[T]()

		reflector := jsonschema.Reflector{
			Anonymous:                 true,
			AllowAdditionalProperties: !opts.StrictJSONSchema,
			ExpandedStruct:            true,
		}

		var valueToReflect any
		if isWrapped {
			valueToReflect = wrappedOutputType[T]{}
		} else {
			valueToReflect = zero
		}

		schema := reflector.Reflect(valueToReflect)
		b, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to JSON-marshal JSON schema: %w", err)
		}
		if err = json.Unmarshal(b, &outputSchema); err != nil {
			return nil, fmt.Errorf("failed to JSON-unmarshal JSON schema: %w", err)
		}

		if opts.StrictJSONSchema {
			outputSchema, err = EnsureStrictJSONSchema(outputSchema)
			if err != nil {
				return nil, err
			}
		}
	}

	return outputTypeImpl[T]{
		isWrapped:        isWrapped,
		outputSchema:     outputSchema,
		strictJSONSchema: opts.StrictJSONSchema,
		isPlainText:      isPlainText,
		name:             fmt.Sprintf("%T", zero),
	}, nil
}

// isStruct reports whether T is a struct or pointer to struct.
func isStruct[T any]() bool {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return false
	}
	kind := typ.Kind()
	return kind == reflect.Struct || (kind == reflect.Ptr && typ.Elem().Kind() == reflect.Struct)
}

func (t outputTypeImpl[T]) IsPlainText() bool        { return t.isPlainText }
func (t outputTypeImpl[T]) Name() string             { return t.name }
func (t outputTypeImpl[T]) IsStrictJSONSchema() bool { return t.strictJSONSchema }

func (t outputTypeImpl[T]) JSONSchema() (map[string]any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so no JSON schema is available")
	}
	return t.outputSchema, nil
}

func (t outputTypeImpl[T]) ValidateJSON(ctx context.Context, jsonStr string) (any, error) {
	if t.isPlainText {
		return nil, NewUserError("output type is plain text, so JSON validation is not available")
	}

	schemaLoader := gojsonschema.NewGoLoader(t.outputSchema)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return nil, ModelBehaviorErrorf("failed to load and compile output JSON schema: %w", err)
	}

	if err := ValidateJSON(ctx, schema, jsonStr); err != nil {
		return nil, NewSchemaValidationError(t.name, err)
	}

	if t.isWrapped {
		var wrappedOutput wrappedOutputType[T]
		if err := json.Unmarshal([]byte(jsonStr), &wrappedOutput); err != nil {
			return nil, ModelBehaviorErrorf("failed to unmarshal JSON output (wrapped): %w", err)
		}
		return wrappedOutput.Response, nil
	}

	var output T
	if err := json.Unmarshal([]byte(jsonStr), &output); err != nil {
		return nil, ModelBehaviorErrorf("failed to unmarshal JSON output: %w", err)
	}
	return output, nil
}
