package store

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"empty", "", true},
		{"normal", "nightly-export", false},
		{"max_length", strings.Repeat("a", 255), false},
		{"too_long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%d chars) error = %v, wantErr %v", len(tt.in), err, tt.wantErr)
			}
		})
	}
}

func TestValidatePayloadSize(t *testing.T) {
	atLimit := make([]byte, MaxPayloadBytes)
	overLimit := make([]byte, MaxPayloadBytes+1)

	if err := ValidatePayloadSize(atLimit); err != nil {
		t.Errorf("payload at exactly MaxPayloadBytes should be accepted, got %v", err)
	}
	if err := ValidatePayloadSize(overLimit); err == nil {
		t.Errorf("payload one byte over MaxPayloadBytes should be rejected")
	}
}
