package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrMigrationFailed means a schema script did not apply.
	ErrMigrationFailed = errors.New("migration: apply failed")
	// ErrInvalidMigrationFile means a file name or body cannot be used as a migration.
	ErrInvalidMigrationFile = errors.New("migration: invalid file")
	// ErrDuplicateVersion means two files claim the same version prefix.
	ErrDuplicateVersion = errors.New("migration: duplicate version")
	// ErrChecksumMismatch means an applied script was edited afterwards.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
)

// StepError reports which step of which migration file failed.
type StepError struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	name := e.File
	if e.Version != "" {
		name = e.Version + " " + e.File
	}
	return fmt.Sprintf("migration %s: %s: %v", name, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepError(version, file, step string, err error) *StepError {
	return &StepError{Version: version, File: file, Step: step, Err: err}
}
