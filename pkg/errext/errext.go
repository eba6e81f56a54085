// Package errext lets bankld errors carry the process exit code and a user
// hint up to main, which prints one diagnostic and exits.
package errext

import (
	"errors"

	"bankld/pkg/errext/exitcodes"
)

// HasExitCode is an error that decides the status bankld exits with.
// *linker.Error implements it directly.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// WithExitCodeIfNone tags err with exitCode. The innermost code wins: an err
// whose chain already carries one, or a nil err, is returned untouched.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode exitcodes.ExitCode
}

func (wh withExitCode) Unwrap() error {
	return wh.error
}

func (wh withExitCode) ExitCode() exitcodes.ExitCode {
	return wh.exitCode
}

var _ HasExitCode = withExitCode{}

// ExitCodeOf returns the exit code attached to err, or exitcodes.Generic.
func ExitCodeOf(err error) exitcodes.ExitCode {
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return ecerr.ExitCode()
	}
	return exitcodes.Generic
}
