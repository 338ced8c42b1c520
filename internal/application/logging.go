package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel, domain and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}

	var (
		vErr          *ValidationError
		invalidTime   *domain.InvalidTimeError
		pastTime      *domain.PastTimeError
		conflict      *domain.ConflictError
		badTransition *domain.InvalidTransitionError
	)
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &invalidTime):
		return "invalid_time"
	case errors.As(err, &pastTime):
		return "past_time"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &badTransition):
		return "invalid_transition"
	}

	return "unexpected"
}

// logOutcome records the result of a service operation at a level matching the error kind.
func logOutcome(ctx context.Context, logger *slog.Logger, err error, msg string, attrs ...any) {
	if err == nil {
		logger.InfoContext(ctx, msg, attrs...)
		return
	}
	kind := ErrorKind(err)
	attrs = append(attrs, "error_kind", kind, "error", err)
	if kind == "unexpected" {
		logger.ErrorContext(ctx, msg+" failed", attrs...)
		return
	}
	logger.WarnContext(ctx, msg+" rejected", attrs...)
}
