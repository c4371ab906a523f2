package tracing

import (
	"context"
	"testing"
)

func TestSetupNoOpWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	if err != nil {
		t.Fatalf("expected no error for disabled tracing, got %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected no-op shutdown to succeed, got %v", err)
	}
}
