package service

import "context"

// RequestMeta carries client details recorded in the audit trail.
type RequestMeta struct {
	UserAgent string
	IPAddress string
}

type requestMetaKey struct{}

// WithRequestMeta attaches client details to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the client details bound to ctx, if any.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	if meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return meta
	}
	return RequestMeta{}
}
