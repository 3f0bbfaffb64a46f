package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/capitalize-ai/journey-analytics/internal/llm"
)

// ToolFunc executes one tool invocation. Args holds the model-supplied JSON
// arguments; the returned value is JSON-encoded unless it is already a string.
type ToolFunc func(ctx context.Context, args gjson.Result) (any, error)

// Tool is a named function the model may call during the dispatch loop.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     ToolFunc
}

// Spec returns the provider-facing declaration of the tool.
func (t Tool) Spec() llm.ToolSpec {
	params := t.Parameters
	if params == nil {
		params = ObjectSchema(nil)
	}
	return llm.ToolSpec{Name: t.Name, Description: t.Description, Parameters: params}
}

// ObjectSchema builds a JSON schema object with the given properties and
// no required fields.
func ObjectSchema(properties map[string]any) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

// Prop describes a scalar schema property.
func Prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// ArrayProp describes an array schema property whose items have the given schema.
func ArrayProp(items map[string]any, description string) map[string]any {
	return map[string]any{"type": "array", "items": items, "description": description}
}

func encodeToolResult(v any) (string, error) {
	switch r := v.(type) {
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}

func parseArgs(raw []byte) gjson.Result {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Parse("{}")
	}
	return gjson.ParseBytes(raw)
}
