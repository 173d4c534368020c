package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	uploadIDKey
	tenantKey
)

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithUploadID returns a context carrying the upload batch ID.
func WithUploadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, uploadIDKey, id)
}

// WithTenant returns a context carrying the tenant ID.
func WithTenant(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantKey, id)
}

// UploadID returns the upload batch ID stored in ctx, if any.
func UploadID(ctx context.Context) string {
	id, _ := ctx.Value(uploadIDKey).(string)
	return id
}

// RequestIDExtractor adds request_id to records logged with a request context.
func RequestIDExtractor() ContextExtractor {
	return stringExtractor(requestIDKey, "request_id")
}

// UploadIDExtractor adds upload_id to records logged during an upload.
func UploadIDExtractor() ContextExtractor {
	return stringExtractor(uploadIDKey, "upload_id")
}

// TenantExtractor adds tenant to records logged on behalf of a tenant.
func TenantExtractor() ContextExtractor {
	return stringExtractor(tenantKey, "tenant")
}

// DefaultExtractors returns the request, upload and tenant extractors.
func DefaultExtractors() []ContextExtractor {
	return []ContextExtractor{RequestIDExtractor(), UploadIDExtractor(), TenantExtractor()}
}

func stringExtractor(key ctxKey, name string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			return slog.String(name, v), true
		}
		return slog.Attr{}, false
	}
}
