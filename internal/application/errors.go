package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/persistence"
)

var (
	// ErrUnauthorized means the actor is neither the host nor a participant
	// of the session, or lacks the role the operation needs.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound means the session does not exist.
	ErrNotFound = errors.New("application: not found")
)

// ValidationError collects request problems keyed by field. Messages are
// English keys that the HTTP layer translates.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field was rejected.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add keeps the first message recorded for a field.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; !exists {
		v.FieldErrors[field] = message
	}
}

// mapStoreError translates persistence failures into application and domain errors.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var overlap *persistence.OverlapError
	switch {
	case errors.As(err, &overlap):
		return &domain.ConflictError{
			OccurrenceIndex: overlap.Index,
			SessionID:       overlap.ExistingSessionID,
			Identity:        overlap.Identity,
		}
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("session", "session violates a storage constraint")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
