package testutil

import (
	"errors"

	"github.com/roach88/gsync/internal/gitexec"
)

// ExitError builds a gitexec.CommandError with the given exit code, for
// scripting command failures that callers inspect by code.
func ExitError(code int) error {
	return &gitexec.CommandError{
		Args:     []string{"scripted"},
		ExitCode: code,
		Err:      errors.New("scripted failure"),
	}
}
