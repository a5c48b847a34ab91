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
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// ModelBehaviorError is returned when the model does something unexpected,
// e.g. producing malformed JSON or output that fails schema validation.
type ModelBehaviorError error

func NewModelBehaviorError(message string) ModelBehaviorError {
	return ModelBehaviorError(errors.New(message))
}

func ModelBehaviorErrorf(format string, a ...any) ModelBehaviorError {
	return ModelBehaviorError(fmt.Errorf(format, a...))
}

// UserError is returned when the caller misuses the package.
type UserError error

func NewUserError(message string) UserError {
	return UserError(errors.New(message))
}

func UserErrorf(format string, a ...any) UserError {
	return UserError(fmt.Errorf(format, a...))
}

// SchemaValidationError is returned when the model emitted syntactically
// valid JSON that does not conform to the requested output schema.
type SchemaValidationError struct {
	OutputTypeName string
	Err            error
}

func (err *SchemaValidationError) Error() string {
	return fmt.Sprintf("output does not conform to schema %s: %v", err.OutputTypeName, err.Err)
}

func (err *SchemaValidationError) Unwrap() error { return err.Err }

func NewSchemaValidationError(outputTypeName string, err error) *SchemaValidationError {
	return &SchemaValidationError{OutputTypeName: outputTypeName, Err: err}
}

// TransientGenerationError is returned when an upstream model call failed
// with a retryable condition (rate limit or server error) and the client's
// retry budget has been exhausted. Callers may surface it as a temporary
// failure rather than a permanent one.
type TransientGenerationError struct {
	StatusCode int
	Err        error
}

func (err *TransientGenerationError) Error() string {
	return fmt.Sprintf("transient generation failure (status %d): %v", err.StatusCode, err.Err)
}

func (err *TransientGenerationError) Unwrap() error { return err.Err }

// ClassifyModelError wraps rate-limit and server-side API failures in
// TransientGenerationError. Other errors pass through unchanged.
func ClassifyModelError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return &TransientGenerationError{StatusCode: apiErr.StatusCode, Err: err}
		}
	}
	return err
}
