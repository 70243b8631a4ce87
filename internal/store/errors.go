package store

import (
	"fmt"
	"strings"
)

// ValidationError reports input rejected before any persistence call: an
// empty name or an unrecognized account type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an operation on an id that is not in the tree.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.ID)
}

// CycleError reports a re-parenting that would make an account its own
// ancestor.
type CycleError struct {
	ID          string
	NewParentID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("moving account %s under %s would create a cycle", e.ID, e.NewParentID)
}

// PersistenceError reports a failed adapter call. The in-memory tree is left
// unchanged when it is returned.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s of account %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PartialCascadeError reports a recursive delete that removed some but not
// all descendants before failing. Removed and Remaining together cover every
// account the cascade targeted.
type PartialCascadeError struct {
	Removed   []string
	Remaining []string
	Err       error
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("cascade delete incomplete: removed [%s], remaining [%s]: %v",
		strings.Join(e.Removed, ", "), strings.Join(e.Remaining, ", "), e.Err)
}

func (e *PartialCascadeError) Unwrap() error {
	return e.Err
}
