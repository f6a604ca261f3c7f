package logger

import "context"

// InfoCtx and WarnCtx are the context-aware counterparts of InfoCF/WarnCF:
// they fold in the task correlation ID from ctx (see WithTaskID) alongside
// whatever fields the caller already had.
func InfoCtx(ctx context.Context, component, message string, fields map[string]interface{}) {
	InfoCF(component, message, fieldsWithTaskID(ctx, fields))
}

func WarnCtx(ctx context.Context, component, message string, fields map[string]interface{}) {
	WarnCF(component, message, fieldsWithTaskID(ctx, fields))
}

type taskIDKeyType struct{}

var taskIDKey = taskIDKeyType{}

// WithTaskID attaches a task correlation ID to ctx so every log line and
// error produced while handling one RunTask call can be tied back to it,
// across the runner, executor, and locator package boundaries.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskIDFromContext returns the correlation ID stamped by WithTaskID, or ""
// if none was attached (e.g. in tests that build a bare context.Background()).
func TaskIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(taskIDKey).(string)
	return id
}

// fieldsWithTaskID merges a caller's field set with the context's task ID,
// if any, without mutating the caller's map.
func fieldsWithTaskID(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	id := TaskIDFromContext(ctx)
	if id == "" {
		return fields
	}
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["task_id"] = id
	return merged
}
