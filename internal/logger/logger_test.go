package logger

import (
	"context"
	"testing"
)

func TestWithRequestID_And_RequestIDFromContext(t *testing.T) {
	ctx := context.Background()

	// Initially empty
	if got, ok := RequestIDFromContext(ctx); ok || got != 0 {
		t.Errorf("RequestIDFromContext() on empty ctx = (%v, %v), want absent", got, ok)
	}

	// After setting
	ctx = WithRequestID(ctx, 12345)
	if got, ok := RequestIDFromContext(ctx); !ok || got != 12345 {
		t.Errorf("RequestIDFromContext() = (%v, %v), want 12345", got, ok)
	}
}

func TestFromContext_WithRequestID(t *testing.T) {
	base := New()
	ctx := context.Background()

	// Without request ID - should return base logger (not nil)
	logger := FromContext(ctx, base)
	if logger == nil {
		t.Error("FromContext() returned nil")
	}

	// With request ID - should return logger with request_id attached
	ctx = WithRequestID(ctx, 67890)
	loggerWithID := FromContext(ctx, base)
	if loggerWithID == nil {
		t.Error("FromContext() with request ID returned nil")
	}
}

func TestNew_ReturnsLogger(t *testing.T) {
	if New() == nil {
		t.Error("New() returned nil")
	}
	if NewDebug() == nil {
		t.Error("NewDebug() returned nil")
	}
}
