// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package middleware

import (
	"context"

	"go.uber.org/zap"
)

// WithContext returns a new context carrying the request scoped logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext retrieves the request scoped logger. If no logger is found a no-op logger is returned.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey).(*zap.Logger); ok {
			return logger
		}
	}

	return zap.NewNop()
}

type contextKeyType struct{}

var contextKey = contextKeyType{}
