package logger

import (
	"context"
	"testing"
)

func TestTaskIDFromContextRoundTrips(t *testing.T) {
	ctx := WithTaskID(context.Background(), "abc-123")
	if got := TaskIDFromContext(ctx); got != "abc-123" {
		t.Fatalf("expected abc-123, got %q", got)
	}
}

func TestTaskIDFromContextEmptyWhenUnset(t *testing.T) {
	if got := TaskIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty task id, got %q", got)
	}
}

func TestFieldsWithTaskIDMergesWithoutMutatingInput(t *testing.T) {
	ctx := WithTaskID(context.Background(), "xyz")
	original := map[string]interface{}{"k": "v"}
	merged := fieldsWithTaskID(ctx, original)

	if len(original) != 1 {
		t.Fatalf("expected caller's map untouched, got %+v", original)
	}
	if merged["task_id"] != "xyz" || merged["k"] != "v" {
		t.Fatalf("expected merged fields to include both, got %+v", merged)
	}
}
