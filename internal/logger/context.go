package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Into returns a copy of ctx carrying the logger.
func Into(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger stored in ctx, or fallback when there is none.
func From(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}

	return WithFields(fallback)
}
