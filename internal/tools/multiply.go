package tools

import (
	"context"
	"strconv"
)

// MultiplyTool multiplies two numbers. Pure computation, no I/O.
type MultiplyTool struct{}

// NewMultiplyTool creates the multiply tool.
func NewMultiplyTool() *MultiplyTool { return &MultiplyTool{} }

func (*MultiplyTool) Name() string { return "multiply" }

func (*MultiplyTool) Description() string {
	return "Takes 'a' and 'b' as numbers and returns their product."
}

func (*MultiplyTool) Schema() *InputSchema {
	return &InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"a": {Type: "number", Description: "First number"},
			"b": {Type: "number", Description: "Second number"},
		},
		Required: []string{"a", "b"},
	}
}

func (*MultiplyTool) Invoke(_ context.Context, args map[string]any) (string, error) {
	a, err := numberArg(args, "a")
	if err != nil {
		return "", err
	}
	b, err := numberArg(args, "b")
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(a*b, 'f', -1, 64), nil
}
