package tools

import (
	"context"
	"fmt"

	"github.com/cliff-rosen/orchestrator-sub003/internal/template"
)

// BuiltinFunc implements a utility tool in process.
type BuiltinFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// EchoPrefix is prepended to the input of the echo tool.
const EchoPrefix = "Echo: "

// Builtins returns the utility tool implementations keyed by tool id.
func Builtins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		ToolEcho:        echo,
		ToolConcatenate: concatenate,
	}
}

func echo(_ context.Context, params map[string]any) (map[string]any, error) {
	input, err := stringParam(params, "input")
	if err != nil {
		return nil, err
	}
	return map[string]any{"output": EchoPrefix + input}, nil
}

func concatenate(_ context.Context, params map[string]any) (map[string]any, error) {
	first, err := stringParam(params, "first")
	if err != nil {
		return nil, err
	}
	second, err := stringParam(params, "second")
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": first + second}, nil
}

func stringParam(params map[string]any, name string) (string, error) {
	value, exists := params[name]
	if !exists || value == nil {
		return "", fmt.Errorf("parameter %s is required", name)
	}
	return template.Stringify(value), nil
}
