package main

import (
	"context"
	"errors"

	errs "picukidl/pkg/errors"
)

// Process exit codes
const (
	ExitOK          = 0
	ExitNotFound    = 1
	ExitUsage       = 2
	ExitFailure     = 3
	ExitInterrupted = 130
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: ExitUsage, err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, context.Canceled), errs.TypeOf(err) == errs.ErrorTypeCancelled:
		return ExitInterrupted
	case errors.Is(err, errs.ErrProfileNotFound):
		return ExitNotFound
	case errors.Is(err, errs.ErrInvalidArgument):
		return ExitUsage
	default:
		return ExitFailure
	}
}
