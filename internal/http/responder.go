package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/domain"
)

// Error codes surfaced in errorResponse.ErrorCode.
const (
	codeForbidden         = "FORBIDDEN"
	codeNotFound          = "NOT_FOUND"
	codeValidation        = "VALIDATION_FAILED"
	codeInvalidTime       = "INVALID_TIME"
	codePastTime          = "PAST_TIME"
	codeConflict          = "BOOKING_CONFLICT"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeInternal          = "INTERNAL"
	codeBadRequest        = "BAD_REQUEST"
	codeActorRequired     = "ACTOR_REQUIRED"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError sends a localized error body. key is a catalog message key and
// args fill its verbs.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, key string, args ...any) {
	printer := printerFromContext(ctx)
	r.writeJSON(ctx, w, status, errorResponse{
		ErrorCode: code,
		Message:   printer.Sprintf(key, args...),
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	printer := printerFromContext(ctx)
	if err == nil {
		err = errors.New("unknown error")
	}

	var (
		vErr        *application.ValidationError
		timeErr     *domain.InvalidTimeError
		pastErr     *domain.PastTimeError
		conflictErr *domain.ConflictError
		transErr    *domain.InvalidTransitionError
	)

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusForbidden, codeForbidden, msgForbidden)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, msgNotFound)
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeValidation,
			Message:   printer.Sprintf(msgValidation),
			Errors:    localizeValidationErrors(ctx, vErr),
		})
	case errors.As(err, &timeErr):
		details := map[string]string{}
		if timeErr.Field != "" {
			details[timeErr.Field] = timeErr.Reason
		}
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: codeInvalidTime,
			Message:   printer.Sprintf(msgInvalidTime),
			Errors:    details,
		})
	case errors.As(err, &pastErr):
		r.writeError(ctx, w, http.StatusUnprocessableEntity, codePastTime, msgPastTime)
	case errors.As(err, &conflictErr):
		details := map[string]string{"occurrence": strconv.Itoa(conflictErr.OccurrenceIndex + 1)}
		if conflictErr.SessionID != "" {
			details["session_id"] = conflictErr.SessionID
		}
		if conflictErr.Identity != "" {
			details["identity"] = conflictErr.Identity
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeConflict,
			Message:   printer.Sprintf(msgConflict, conflictErr.OccurrenceIndex+1),
			Errors:    details,
		})
	case errors.As(err, &transErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeInvalidTransition,
			Message:   printer.Sprintf(msgInvalidTransition),
			Errors:    map[string]string{transErr.Action: translate(printer, transErr.Reason)},
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, msgInternal)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizeValidationErrors(ctx context.Context, vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	printer := printerFromContext(ctx)
	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translate(printer, msg)
	}
	return translated
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
