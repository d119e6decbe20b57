package workspace

import (
	"errors"
	"fmt"
)

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrEntryNotFound     = errors.New("manifest entry not found")
)

// ConflictError is returned when the OCC gate rejects a round: the client's
// version is stale (phase 1), the reservation lost the race to a concurrent
// commit, or the reservation expired (phase 2). CurrentVersion always
// carries the authoritative version so the client can resynchronize.
type ConflictError struct {
	CurrentVersion int64
	Expired        bool
}

func (e *ConflictError) Error() string {
	if e.Expired {
		return fmt.Sprintf("reservation expired, workspace at version %d", e.CurrentVersion)
	}
	return fmt.Sprintf("version conflict, workspace at version %d", e.CurrentVersion)
}

// AsConflict unwraps err into a ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// ValidationError marks a malformed request: bad path, unknown kind,
// missing required action fields, or a path/kind mismatch.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
