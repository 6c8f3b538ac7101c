// Package gitexec provides typed access to the git CLI. Every command
// targets an explicit repository directory via the -C flag, injected by
// the runner - there is no default directory and the process working
// directory is never consulted, so runners are safe to share across
// goroutines.
//
// gsync orchestrates git entirely through discrete command executions
// and inspects their text output and exit status; it never manipulates
// repository objects in-process.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes git commands against a repository directory.
//
// Run captures and returns trimmed stdout. RunVisible inherits the
// parent's standard streams, for operations whose output belongs to the
// operator (merge conflicts, rebase progress).
//
// Implementations must not panic across this boundary: a spawn error or
// non-zero exit is reported as an error value, never raised.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
	RunVisible(ctx context.Context, dir string, args ...string) error
}

// CommandError reports a git command that spawned but exited non-zero,
// or failed to spawn at all (ExitCode -1).
type CommandError struct {
	Dir      string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s in %s: exit %d", strings.Join(e.Args, " "), e.Dir, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the git exit code from an error chain.
// Returns -1 for spawn failures and 0 for non-CommandError errors.
func ExitCode(err error) int {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.ExitCode
	}
	return 0
}

// IsExit reports whether err is a CommandError with the given exit code.
func IsExit(err error, code int) bool {
	var ce *CommandError
	return errors.As(err, &ce) && ce.ExitCode == code
}

// Git is the production Runner backed by the git binary on PATH.
type Git struct{}

// Run executes "git -C dir args..." and returns whitespace-trimmed stdout.
func (Git) Run(ctx context.Context, dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", wrapRunError(dir, args, stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// RunVisible executes "git -C dir args..." with the parent's standard
// streams attached.
func (Git) RunVisible(ctx context.Context, dir string, args ...string) error {
	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		return wrapRunError(dir, args, "", err)
	}
	return nil
}

func wrapRunError(dir string, args []string, stderr string, err error) error {
	code := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}
	return &CommandError{
		Dir:      dir,
		Args:     args,
		ExitCode: code,
		Stderr:   stderr,
		Err:      err,
	}
}
