package registry

import (
	"encoding/json"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

// Schema construction helpers. Every tool declares a closed object schema:
// unknown fields are rejected at the boundary.

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func stringDefault(description, value string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: description,
		Default:     json.RawMessage(strconv.Quote(value)),
	}
}

func intProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func intDefault(description string, value int) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: description,
		Default:     json.RawMessage(strconv.Itoa(value)),
	}
}

func boolDefault(description string, value bool) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "boolean",
		Description: description,
		Default:     json.RawMessage(strconv.FormatBool(value)),
	}
}

func enumProp(description string, values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Description: description, Enum: enum}
}

// mappingProp is an open JSON object argument (e.g. tags, rdata).
func mappingProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: description}
}

func stringListProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

// ---- validated-argument accessors ----

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func argMap(args map[string]any, key string) map[string]any {
	v, _ := args[key].(map[string]any)
	return v
}

func argStrings(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// has reports whether the argument was supplied (or defaulted) non-empty.
func has(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// setIf copies optional scalar arguments into an upstream request body.
func setIf(body map[string]any, args map[string]any, keys ...string) {
	for _, key := range keys {
		if has(args, key) {
			body[key] = args[key]
		}
	}
}
