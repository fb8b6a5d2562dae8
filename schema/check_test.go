package schema

import (
	"strings"
	"testing"

	apperrors "github.com/unlearnai/dagster/errors"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		t       ConfigType
		wantErr string
	}{
		{"valid", credentials("Credentials", nil), ""},
		{"required with default", NewShape(Fields{"a": NewField(Int, IsRequired(true), DefaultValue(1))}), "marked required"},
		{"nested bad default", NewShape(Fields{"outer": NewField(NewShape(Fields{"b": NewField(Bool, DefaultValue("no"))}))}), "does not match"},
		{"map with record key", NewMap(NewShape(nil), Int), "must be a scalar"},
		{"selector choice", NewSelector(Fields{"x": NewField(Int, IsRequired(true), DefaultValue(1))}), "marked required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.t)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Check() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Check() error = %v, want containing %q", err, tc.wantErr)
			}
			if !apperrors.HasCode(err, apperrors.ErrCodeInvalidDefinition) {
				t.Errorf("expected INVALID_DEFINITION, got %v", err)
			}
		})
	}
}

func TestCheckField(t *testing.T) {
	if err := CheckField("config", nil); err != nil {
		t.Errorf("nil field should pass, got %v", err)
	}
	bad := NewField(NewShape(Fields{"a": NewField(Int, DefaultValue(1.5))}))
	if err := CheckField("config", bad); err == nil {
		t.Error("expected invalid nested default to be reported")
	}
}
