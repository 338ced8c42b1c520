package http

import (
	"context"
	"log/slog"

	"github.com/example/session-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.FromContextOr(context.Background(), logger)
}

// handlerLogger returns the request logger, or fallback outside a request,
// tagged with the route and the acting identity.
func handlerLogger(ctx context.Context, fallback *slog.Logger, route, action string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, len(attrs)+6)
	pairs = append(pairs, "route", route)
	if action != "" {
		pairs = append(pairs, "action", action)
	}
	if actor, ok := ActorFromContext(ctx); ok {
		pairs = append(pairs, "actor_id", actor)
	}
	return logging.FromContextOr(ctx, fallback).With(append(pairs, attrs...)...)
}
