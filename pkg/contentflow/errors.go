package contentflow

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNodeNotFound indicates a content node was not found
	ErrNodeNotFound = errors.New("content node not found")

	// ErrParentNotFound indicates a referenced parent node was not found
	ErrParentNotFound = errors.New("parent node not found")

	// ErrContentTypeNotFound indicates an unknown content type alias
	ErrContentTypeNotFound = errors.New("content type not found")

	// ErrLanguageNotFound indicates an unknown culture code
	ErrLanguageNotFound = errors.New("language not found")

	// ErrForbidden indicates the acting user lacks a required permission
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidNode indicates a new node failed its structural precondition
	// and cannot be persisted at all
	ErrInvalidNode = errors.New("invalid content node")

	// ErrCancelledByOperation indicates an event hook vetoed the operation.
	// Callers must treat it as "no state change occurred", not as a fault.
	ErrCancelledByOperation = errors.New("operation cancelled by event")

	// ErrConflict indicates the repository detected stale state; the caller
	// should reload and retry
	ErrConflict = errors.New("concurrent modification detected")

	// ErrStructuralViolation indicates a hierarchy invariant would be broken
	ErrStructuralViolation = errors.New("hierarchy constraint violated")
)

// NodeError represents an error related to a content node operation
type NodeError struct {
	NodeID int
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("content operation %s failed for node %d: %v", e.Op, e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
