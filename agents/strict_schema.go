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
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// EnsureStrictJSONSchema mutates the given JSON schema to conform to the
// `strict` profile that the OpenAI structured outputs API expects: every
// object forbids additional properties and requires all of its properties,
// and $refs carrying sibling keys are unraveled.
func EnsureStrictJSONSchema(schema map[string]any) (map[string]any, error) {
	if len(schema) == 0 {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           map[string]any{},
			"required":             []string{},
		}, nil
	}
	return ensureStrictJSONSchema(schema, nil, schema)
}

func ensureStrictJSONSchema(rawJSONSchema any, path []string, root map[string]any) (map[string]any, error) {
	jsonSchema, ok := rawJSONSchema.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected %#v to be a map[string]any, path=%+v", rawJSONSchema, path)
	}

	for _, defKey := range []string{"$defs", "definitions"} {
		if defs, ok := jsonSchema[defKey].(map[string]any); ok {
			for defName, defSchema := range defs {
				_, err := ensureStrictJSONSchema(defSchema, slices.Concat(path, []string{defKey, defName}), root)
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if typ, _ := jsonSchema["type"].(string); typ == "object" {
		if additionalProperties, ok := jsonSchema["additionalProperties"]; !ok {
			jsonSchema["additionalProperties"] = false
		} else if additionalProperties == true {
			return nil, NewUserError(
				"additionalProperties should not be set for object types when a strict schema is requested",
			)
		}
	}

	if properties, ok := jsonSchema["properties"].(map[string]any); ok {
		jsonSchema["required"] = slices.Collect(maps.Keys(properties))

		newProperties := make(map[string]any, len(properties))
		for key, propSchema := range properties {
			var err error
			newProperties[key], err = ensureStrictJSONSchema(propSchema, slices.Concat(path, []string{"properties", key}), root)
			if err != nil {
				return nil, err
			}
		}
		jsonSchema["properties"] = newProperties
	}

	if items, ok := jsonSchema["items"].(map[string]any); ok {
		var err error
		jsonSchema["items"], err = ensureStrictJSONSchema(items, slices.Concat(path, []string{"items"}), root)
		if err != nil {
			return nil, err
		}
	}

	if anyOf, ok := jsonSchema["anyOf"].([]any); ok {
		newAnyOf := make([]any, len(anyOf))
		for i, variant := range anyOf {
			var err error
			newAnyOf[i], err = ensureStrictJSONSchema(variant, slices.Concat(path, []string{"anyOf", strconv.Itoa(i)}), root)
			if err != nil {
				return nil, err
			}
		}
		jsonSchema["anyOf"] = newAnyOf
	}

	// A nil default carries no meaning for a nullable schema.
	if d, ok := jsonSchema["default"]; ok && d == nil {
		delete(jsonSchema, "default")
	}

	// A $ref with sibling keys (e.g. a description) must be unraveled,
	// since strict mode forbids mixing $ref with other properties.
	if rawRef, ok := jsonSchema["$ref"]; ok && len(jsonSchema) > 1 {
		ref, ok := rawRef.(string)
		if !ok {
			return nil, fmt.Errorf("received non-string $ref: %#v", rawRef)
		}
		resolved, err := resolveJSONSchemaRef(root, ref)
		if err != nil {
			return nil, err
		}

		delete(jsonSchema, "$ref")
		// Keys already on the schema take priority over the resolved ones.
		for k, v := range resolved {
			if _, ok := jsonSchema[k]; !ok {
				jsonSchema[k] = v
			}
		}
		// The inlined schema may itself need strict fixes.
		return ensureStrictJSONSchema(jsonSchema, path, root)
	}

	return jsonSchema, nil
}

func resolveJSONSchemaRef(root map[string]any, ref string) (map[string]any, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, fmt.Errorf("unexpected $ref format: expected `#/` prefix in $ref value %q", ref)
	}

	resolved := root
	for _, key := range strings.Split(ref[2:], "/") {
		var ok bool
		resolved, ok = resolved[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("encountered non-dictionary entry while resolving $ref %q: %#v", ref, resolved)
		}
	}
	return resolved, nil
}
