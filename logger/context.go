package logger

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	runIDKey contextKey = iota
	scenarioKey
)

// SetRunID stores the test run ID in the context.
func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID returns the run ID stored in ctx, or "".
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// SetScenario stores the name of the scenario being executed.
func SetScenario(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scenarioKey, name)
}

// GetScenario returns the scenario name stored in ctx, or "".
func GetScenario(ctx context.Context) string {
	if name, ok := ctx.Value(scenarioKey).(string); ok {
		return name
	}
	return ""
}

// GenerateRunID creates a new UUID v4 run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// contextFields returns the correlation key-value pairs present in ctx.
func contextFields(ctx context.Context) []any {
	var kv []any
	if id := GetRunID(ctx); id != "" {
		kv = append(kv, "run_id", id)
	}
	if name := GetScenario(ctx); name != "" {
		kv = append(kv, "scenario", name)
	}
	return kv
}
