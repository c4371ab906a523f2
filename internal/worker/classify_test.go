package worker

import "testing"

func TestErrorClass_Retryable(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  bool
	}{
		{ClassNetwork, true},
		{ClassTimeout, true},
		{ClassServer, true},
		{ClassClient, false},
		{ClassUnauthorizedTarget, false},
		{ClassPayloadTooLarge, false},
		{ClassValidation, false},
		{ClassNotFound, false},
		{ClassUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.class.Retryable(); got != tt.want {
			t.Errorf("%s.Retryable() = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{199, ClassClient},
		{300, ClassClient},
		{404, ClassClient},
		{500, ClassServer},
		{503, ClassServer},
	}
	for _, tt := range tests {
		if got := classifyHTTPStatus(tt.status); got != tt.want {
			t.Errorf("classifyHTTPStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
