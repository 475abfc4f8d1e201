// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// argValidate is a validator/v10 instance (the library config.go uses for
// AppConfig struct tags; config.go builds its own instance), applied here
// field-by-field since tool arguments arrive as an untyped map rather than a
// struct.
var argValidate = validator.New()

// validateArguments performs a structural (not exhaustive) check of
// arguments against the descriptor's input_schema: every property the
// schema marks required must be present and non-zero-valued, and present
// properties must match their declared JSON type where the schema states
// one.
func validateArguments(d model.ToolDescriptor, arguments map[string]interface{}) error {
	if d.InputSchema == nil {
		return nil
	}

	required, _ := d.InputSchema["required"].([]interface{})
	for _, r := range required {
		name, ok := r.(string)
		if !ok {
			continue
		}
		value, present := arguments[name]
		if !present {
			return fmt.Errorf("missing required argument %q", name)
		}
		if err := argValidate.Var(value, "required"); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}

	properties, _ := d.InputSchema["properties"].(map[string]interface{})
	for name, value := range arguments {
		propSchema, ok := properties[name].(map[string]interface{})
		if !ok {
			continue
		}
		wantType, _ := propSchema["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesJSONType(value, wantType) {
			return fmt.Errorf("argument %q: expected type %q", name, wantType)
		}
	}
	return nil
}

// matchesJSONType checks value against a JSON Schema primitive type.
// validator/v10 has no notion of JSON Schema types, so this stays a plain
// type switch rather than a tag.
func matchesJSONType(value interface{}, jsonType string) bool {
	switch jsonType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case float64:
			return v == float64(int64(v))
		case int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	default:
		return true
	}
}
