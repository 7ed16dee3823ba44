// Package builtin provides the local tools shipped with the gateway.
package builtin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prismgate/prism/pkg/tool"
)

// All returns every builtin tool.
func All() []tool.Tool {
	return []tool.Tool{
		&echoTool{},
		&clockTool{},
		&calcTool{},
	}
}

// echoTool returns its input, useful for wiring checks and tests.
type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes the provided text back unchanged." }

func (t *echoTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "Text to echo back.",
			},
		},
		"required": []string{"text"},
	}
}

func (t *echoTool) Execute(_ context.Context, args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	return text, nil
}

// clockTool reports the current time, optionally in a named IANA zone.
type clockTool struct{}

func (t *clockTool) Name() string        { return "clock" }
func (t *clockTool) Description() string { return "Returns the current time, optionally in a timezone." }

func (t *clockTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "IANA timezone name, e.g. Europe/Istanbul. Defaults to UTC.",
			},
		},
	}
}

func (t *clockTool) Execute(_ context.Context, args map[string]any) (string, error) {
	loc := time.UTC
	if name, ok := args["timezone"].(string); ok && name != "" {
		var err error
		loc, err = time.LoadLocation(name)
		if err != nil {
			return "", fmt.Errorf("unknown timezone '%s'", name)
		}
	}
	return time.Now().In(loc).Format(time.RFC3339), nil
}

// calcTool evaluates a single arithmetic operation on two operands.
type calcTool struct{}

func (t *calcTool) Name() string        { return "calc" }
func (t *calcTool) Description() string { return "Performs basic arithmetic on two numbers." }

func (t *calcTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "One of add, subtract, multiply, divide.",
			},
			"a": map[string]any{
				"type":        "number",
				"description": "Left operand.",
			},
			"b": map[string]any{
				"type":        "number",
				"description": "Right operand.",
			},
		},
		"required": []string{"operation", "a", "b"},
	}
}

func (t *calcTool) Execute(_ context.Context, args map[string]any) (string, error) {
	a, err := toFloat(args["a"])
	if err != nil {
		return "", fmt.Errorf("operand a: %w", err)
	}
	b, err := toFloat(args["b"])
	if err != nil {
		return "", fmt.Errorf("operand b: %w", err)
	}

	var result float64
	switch op, _ := args["operation"].(string); op {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result = a / b
	default:
		return "", fmt.Errorf("unknown operation '%s'", op)
	}
	return strconv.FormatFloat(result, 'f', -1, 64), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
