package cli

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitSysError, err: err}
}

// userSentinels are store and config errors caused by the caller's input.
var userSentinels = []error{
	types.ErrNotFound,
	types.ErrAlreadyExists,
	types.ErrInvalidID,
	types.ErrInvalidValue,
	types.ErrInvalidNamespace,
	types.ErrNamespaceNotFound,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrSyncStrategyUnknown,
	types.ErrBatchSizeInvalid,
	types.ErrBatchIntervalInvalid,
	types.ErrNamespaceDuplicate,
}

// classify tags err as a user or system error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, s := range userSentinels {
		if errors.Is(err, s) {
			return &exitError{code: exitUserError, err: err}
		}
	}
	return sysError(err)
}

// exitCode maps a command error to a process exit code. Untagged errors
// come from cobra argument and flag parsing and count as user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}
