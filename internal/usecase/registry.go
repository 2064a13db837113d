package usecase

import (
	"context"
	"fmt"

	"nutriagent/internal/domain"
)

// toolFunc runs one tool. Runtime failures are encoded in the returned
// envelope ({"success": false, ...}) so the model sees a normal result it can
// react to; a toolFunc never returns a Go error.
type toolFunc func(ctx context.Context, args map[string]any) map[string]any

type registeredTool struct {
	schema domain.ToolSchema
	run    toolFunc
}

// ToolRegistry is the static name-to-implementation mapping for one agent
// mode. It is built once at service construction and never mutated.
type ToolRegistry struct {
	tools map[string]registeredTool
	order []string
}

func newToolRegistry(tools ...registeredTool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]registeredTool, len(tools))}
	for _, t := range tools {
		r.tools[t.schema.Name] = t
		r.order = append(r.order, t.schema.Name)
	}
	return r
}

// Schemas returns the tool declarations in registration order, for
// advertisement to the generative endpoint.
func (r *ToolRegistry) Schemas() []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].schema)
	}
	return out
}

// Dispatch looks up and invokes the tool named by call. An unregistered name
// is a configuration error and propagates; everything the tool itself gets
// wrong comes back as data inside the result envelope. The envelope is
// wrapped under the protocol's "result" key.
func (r *ToolRegistry) Dispatch(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		return domain.ToolResult{}, newError(ErrorInternal, "unregistered_tool",
			fmt.Errorf("tool %q is not registered", call.Name))
	}

	var payload map[string]any
	if err := validateArgs(t.schema, call.Args); err != nil {
		payload = toolFailureTyped(err.Error(), "validation")
	} else {
		payload = t.run(ctx, call.Args)
	}

	return domain.ToolResult{
		Name:     call.Name,
		Response: map[string]any{"result": payload},
	}, nil
}

// validateArgs checks required fields and primitive types at the dispatch
// boundary, turning a class of wrong-type bugs into one failure point.
func validateArgs(schema domain.ToolSchema, args map[string]any) error {
	for _, field := range schema.Required {
		if _, ok := args[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}
	for name, value := range args {
		p, ok := schema.Params[name]
		if !ok {
			continue
		}
		if err := checkParamType(value, p.Type); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	return nil
}

func checkParamType(value any, want domain.ParamType) error {
	switch want {
	case domain.ParamString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case domain.ParamNumber, domain.ParamInteger:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("expected %s, got %T", want, value)
		}
	case domain.ParamObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}
	return nil
}
