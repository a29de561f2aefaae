package docstore

import (
	"context"
	"strings"
)

type callerKey struct{}

// WithCaller binds the identity performing store operations to ctx. Rules see it as Mutation.Caller.
func WithCaller(ctx context.Context, caller string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, strings.TrimSpace(caller))
}

// CallerFromContext returns the identity bound by WithCaller, if any.
func CallerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(callerKey{}).(string); ok {
		return value
	}
	return ""
}
