// Package tools implements the tool registry and the built-in tools the
// agent can invoke: weather lookup, web search, and arithmetic.
//
// Tools are registered once at startup and the registry is read-only
// afterward. A tool's Invoke may fail; the dispatcher converts failures
// into textual error observations so the agent loop always makes progress.
package tools

import (
	"context"
	"fmt"
)

// Tool is a named capability the model may request an invocation of.
type Tool interface {
	// Name is the unique registry key, referenced by model tool calls.
	Name() string

	// Description is consumed by the model to decide when to invoke the tool.
	Description() string

	// Schema declares the tool's input contract.
	Schema() *InputSchema

	// Invoke executes the tool. The returned string is the observation
	// fed back into the conversation.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// InputSchema is a JSON-Schema-shaped declaration of a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single argument field.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Validate checks args against the schema: required fields must be
// present and values must match their declared primitive type.
func (s *InputSchema) Validate(args map[string]any) error {
	if s == nil {
		return nil
	}
	for _, field := range s.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}
	for key, value := range args {
		prop, ok := s.Properties[key]
		if !ok {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "", "any":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		switch value.(type) {
		case float64, float32, int, int64, int32:
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got %T", expected, value)
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// numberArg extracts a required numeric argument. JSON decoding yields
// float64, but handlers also accept Go integer literals from tests.
func numberArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("field %q: expected number, got %T", key, v)
}
