package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

// ErrStaleWrite is returned when a versioned update matched no row because a
// concurrent transaction bumped the version first.
var ErrStaleWrite = errors.New("stale write: row version changed")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	if code, ok := pkgerrors.PostgresCode(err); ok {
		return code == pgUniqueViolation
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsRetryable reports whether err is a concurrency conflict that is safe to
// resolve by re-running the whole transaction.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStaleWrite) {
		return true
	}
	if code, ok := pkgerrors.PostgresCode(err); ok {
		return code == pgSerializationFailure || code == pgDeadlockDetected
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
