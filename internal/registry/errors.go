package registry

import (
	"errors"
	"fmt"

	"github.com/1broseidon/vdmctl/internal/ipc"
)

var (
	// ErrNotFound matches NotFoundError.
	ErrNotFound = errors.New("monitor not found")
	// ErrConflict matches ConflictError.
	ErrConflict = errors.New("monitor id already in use")
)

// NotFoundError names every requested id that is absent from the registry.
type NotFoundError struct {
	IDs []ipc.ID
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 1 {
		return fmt.Sprintf("virtual monitor with ID %d not found", e.IDs[0])
	}
	return "virtual monitors with IDs " + ipc.FormatIDs(e.IDs) + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError reports an explicitly requested id that is already taken.
type ConflictError struct {
	ID ipc.ID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("virtual monitor with ID %d already exists", e.ID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TransportError wraps any failure to reach or talk to the driver host.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
