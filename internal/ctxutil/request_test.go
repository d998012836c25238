package ctxutil

import (
	"context"
	"testing"
)

func TestRequestID(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", got)
	}

	a := RequestIDFromContext(NewRequestContext(context.Background()))
	b := RequestIDFromContext(NewRequestContext(context.Background()))
	if a == "" || a == b {
		t.Errorf("expected distinct generated IDs, got %q and %q", a, b)
	}
}
