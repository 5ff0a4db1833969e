package tools

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
)

// CalculateTool evaluates arithmetic expressions, covering the cases a
// single multiply call cannot (nested operations, comparisons).
type CalculateTool struct{}

// NewCalculateTool creates the calculator tool.
func NewCalculateTool() *CalculateTool { return &CalculateTool{} }

func (*CalculateTool) Name() string { return "calculate" }

func (*CalculateTool) Description() string {
	return "Evaluates an arithmetic expression such as '(3 + 4) * 12' and returns the result."
}

func (*CalculateTool) Schema() *InputSchema {
	return &InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"expression": {Type: "string", Description: "Arithmetic expression to evaluate"},
		},
		Required: []string{"expression"},
	}
}

func (*CalculateTool) Invoke(_ context.Context, args map[string]any) (string, error) {
	expression, err := stringArg(args, "expression")
	if err != nil {
		return "", err
	}

	program, err := expr.Compile(expression)
	if err != nil {
		return "", fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	result, err := expr.Run(program, nil)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate %q: %w", expression, err)
	}
	return fmt.Sprintf("%v", result), nil
}
