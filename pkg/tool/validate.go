package tool

import "fmt"

// ValidationError reports an argument that failed schema validation.
// It is a client error, detected before the tool executes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument '%s': %s", e.Field, e.Reason)
}

// ValidateArgs checks args against a tool's declared JSON schema: every
// required field must be present, and each provided field must match its
// declared primitive type. Nested schemas are not descended into; this is
// a shallow check by contract.
func ValidateArgs(schema, args map[string]any) error {
	if schema == nil {
		return nil
	}

	if required, ok := schema["required"].([]any); ok {
		for _, field := range required {
			name, ok := field.(string)
			if !ok {
				continue
			}
			if _, present := args[name]; !present {
				return &ValidationError{Field: name, Reason: "required field missing"}
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return &ValidationError{Field: name, Reason: "required field missing"}
			}
		}
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	for name, value := range args {
		prop, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		declared, ok := prop["type"].(string)
		if !ok {
			continue
		}
		if !matchesType(declared, value) {
			return &ValidationError{
				Field:  name,
				Reason: fmt.Sprintf("expected %s, got %T", declared, value),
			}
		}
	}
	return nil
}

// matchesType implements the shallow JSON-schema primitive check. Numbers
// arrive as float64 from JSON decoding but int is accepted for direct
// in-process callers.
func matchesType(declared string, value any) bool {
	switch declared {
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
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	// Unknown declared types pass; validation is best-effort shallow.
	return true
}
