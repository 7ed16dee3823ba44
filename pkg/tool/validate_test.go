package tool

import (
	"errors"
	"testing"
)

func TestValidateArgs(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer"},
			"ratio": map[string]any{"type": "number"},
			"flag":  map[string]any{"type": "boolean"},
			"items": map[string]any{"type": "array"},
			"meta":  map[string]any{"type": "object"},
		},
		"required": []any{"text"},
	}

	tests := []struct {
		name      string
		args      map[string]any
		wantErr   bool
		wantField string
	}{
		{
			name: "valid args",
			args: map[string]any{"text": "hi", "count": 3, "flag": true},
		},
		{
			name:      "required field missing",
			args:      map[string]any{"count": 3},
			wantErr:   true,
			wantField: "text",
		},
		{
			name:      "wrong string type",
			args:      map[string]any{"text": 42},
			wantErr:   true,
			wantField: "text",
		},
		{
			name: "json float as integer",
			args: map[string]any{"text": "hi", "count": float64(3)},
		},
		{
			name:      "fractional float as integer",
			args:      map[string]any{"text": "hi", "count": 3.5},
			wantErr:   true,
			wantField: "count",
		},
		{
			name: "int as number",
			args: map[string]any{"text": "hi", "ratio": 2},
		},
		{
			name:      "string as boolean",
			args:      map[string]any{"text": "hi", "flag": "yes"},
			wantErr:   true,
			wantField: "flag",
		},
		{
			name: "array and object",
			args: map[string]any{"text": "hi", "items": []any{1}, "meta": map[string]any{}},
		},
		{
			name: "undeclared arg passes",
			args: map[string]any{"text": "hi", "extra": struct{}{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArgs(schema, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("field = %s, want %s", ve.Field, tt.wantField)
				}
			}
		})
	}
}

func TestValidateArgs_NilSchema(t *testing.T) {
	if err := ValidateArgs(nil, map[string]any{"anything": 1}); err != nil {
		t.Errorf("ValidateArgs(nil schema) error = %v", err)
	}
}

func TestValidateArgs_StringRequiredList(t *testing.T) {
	schema := map[string]any{"required": []string{"text"}}
	if err := ValidateArgs(schema, nil); err == nil {
		t.Error("ValidateArgs() expected error for missing required field")
	}
}
