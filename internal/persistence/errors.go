package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a CHECK or NOT NULL constraint fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrOverlap is returned when a new session overlaps a live session sharing an identity.
	ErrOverlap = errors.New("persistence: overlapping session")
	// ErrStaleState is returned when a compare-and-swap update finds a different current state.
	ErrStaleState = errors.New("persistence: stale state")
)

// OverlapError names the stored session that blocked a batch insert.
type OverlapError struct {
	Index             int
	ExistingSessionID string
	Identity          string
}

func (e *OverlapError) Error() string {
	return ErrOverlap.Error() + ": " + e.ExistingSessionID + " (" + e.Identity + ")"
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}
