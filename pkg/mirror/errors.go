package mirror

import (
	"errors"
	"fmt"
)

// ErrHandleDisposed is returned by Patch on a disposed handle.
var ErrHandleDisposed = errors.New("mirror: handle disposed")

// WriteBackError reports a failed Store.Set during write-back. The mirror
// keeps its in-memory state; only durability of that write is lost.
type WriteBackError struct {
	Namespace string
	ID        string

	// Seq is the write-back's position in its handle's queue, from 1.
	Seq uint64

	// Field is the field whose write triggered the write-back; empty for
	// a Patch.
	Field string

	Err error
}

func (e *WriteBackError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mirror: write-back %d of %s/%s (patch): %v", e.Seq, e.Namespace, e.ID, e.Err)
	}
	return fmt.Sprintf("mirror: write-back %d of %s/%s (field %q): %v", e.Seq, e.Namespace, e.ID, e.Field, e.Err)
}

func (e *WriteBackError) Unwrap() error { return e.Err }

// PatchError reports that the function passed to Patch failed. No write-back
// was attempted.
type PatchError struct {
	Namespace string
	ID        string
	Err       error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("mirror: patch %s/%s: %v", e.Namespace, e.ID, e.Err)
}

func (e *PatchError) Unwrap() error { return e.Err }
