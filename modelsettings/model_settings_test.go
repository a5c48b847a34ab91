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

package modelsettings

import (
	"testing"

	"github.com/openai/openai-go/v3/packages/param"
	"github.com/stretchr/testify/assert"
)

func TestModelSettingsResolve(t *testing.T) {
	base := ModelSettings{
		Temperature: param.NewOpt(0.5),
		TopP:        param.NewOpt(0.9),
		MaxTokens:   param.NewOpt[int64](100),
	}

	t.Run("empty override keeps base values", func(t *testing.T) {
		resolved := base.Resolve(ModelSettings{})
		assert.Equal(t, base, resolved)
	})

	t.Run("override replaces only provided values", func(t *testing.T) {
		resolved := base.Resolve(ModelSettings{
			Temperature: param.NewOpt(0.1),
			Metadata:    map[string]string{"stage": "critic"},
		})
		assert.Equal(t, param.NewOpt(0.1), resolved.Temperature)
		assert.Equal(t, param.NewOpt(0.9), resolved.TopP)
		assert.Equal(t, param.NewOpt[int64](100), resolved.MaxTokens)
		assert.Equal(t, map[string]string{"stage": "critic"}, resolved.Metadata)
	})

	t.Run("metadata is cloned", func(t *testing.T) {
		md := map[string]string{"k": "v"}
		resolved := base.Resolve(ModelSettings{Metadata: md})
		md["k"] = "mutated"
		assert.Equal(t, "v", resolved.Metadata["k"])
	})
}
