package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type runIDKey struct{}

// NewRunContext attaches a fresh run identifier to ctx and to a
// request-scoped zerolog logger derived from the global one, so every line
// logged through Ctx(ctx) during this invocation carries the same run_id
// field. One run corresponds to one collect-paths or fetch-* invocation.
func NewRunContext(ctx context.Context) context.Context {
	runID := uuid.NewString()
	scoped := log.With().Str("run_id", runID).Logger()
	ctx = context.WithValue(ctx, runIDKey{}, runID)
	return scoped.WithContext(ctx)
}

// Ctx returns the logger carried on ctx, falling back to the global logger
// if the context was never tagged with NewRunContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	if _, ok := ctx.Value(runIDKey{}).(string); ok {
		return zerolog.Ctx(ctx)
	}
	return &log
}

// RunID returns the run identifier attached to ctx, or empty if none.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
