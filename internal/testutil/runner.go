// Package testutil provides shared test fakes: a scripted git runner
// that records every command it is asked to execute.
package testutil

import (
	"context"
	"strings"
	"sync"
)

// Response is a scripted reply for one command pattern.
type Response struct {
	Out string
	Err error
}

// FakeRunner implements gitexec.Runner without spawning processes. Each
// invocation is recorded as a transcript line of the form
//
//	git -C <dir> <args...>
//
// so tests can assert exact command sequences (or golden-compare whole
// transcripts). Replies are scripted per argument prefix; unscripted
// commands succeed with empty output.
//
// Thread-safe: commit cycles run on their own goroutine.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]Response

	// Handler, when set, intercepts every call after recording. It
	// outranks scripted responses; use it to inject delays or dynamic
	// replies.
	Handler func(dir string, args []string) (string, error)
}

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// Stub scripts a reply for every command whose argument list starts
// with the given space-joined prefix, e.g. "rev-parse HEAD" or "push".
// Later longer prefixes win over shorter ones.
func (f *FakeRunner) Stub(prefix, out string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = Response{Out: out, Err: err}
}

// Run records the call and returns the scripted reply.
func (f *FakeRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	return f.dispatch(dir, args)
}

// RunVisible records the call and returns the scripted error.
func (f *FakeRunner) RunVisible(_ context.Context, dir string, args ...string) error {
	_, err := f.dispatch(dir, args)
	return err
}

func (f *FakeRunner) dispatch(dir string, args []string) (string, error) {
	joined := strings.Join(args, " ")

	f.mu.Lock()
	f.calls = append(f.calls, "git -C "+dir+" "+joined)
	handler := f.Handler

	var best string
	var resp Response
	for prefix, r := range f.responses {
		if strings.HasPrefix(joined, prefix) && len(prefix) > len(best) {
			best, resp = prefix, r
		}
	}
	found := best != ""
	f.mu.Unlock()

	if handler != nil {
		return handler(dir, args)
	}
	if found {
		return resp.Out, resp.Err
	}
	return "", nil
}

// Calls returns a copy of the recorded transcript lines.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Transcript returns the recorded calls as one newline-terminated
// string, for golden comparison.
func (f *FakeRunner) Transcript() string {
	calls := f.Calls()
	if len(calls) == 0 {
		return ""
	}
	return strings.Join(calls, "\n") + "\n"
}

// CountPrefix returns how many recorded calls contain the given
// space-joined argument prefix (after the directory part).
func (f *FakeRunner) CountPrefix(prefix string) int {
	n := 0
	for _, call := range f.Calls() {
		// Calls look like "git -C <dir> <args...>".
		_, args, ok := strings.Cut(call, " -C ")
		if !ok {
			continue
		}
		if _, rest, ok := strings.Cut(args, " "); ok && strings.HasPrefix(rest, prefix) {
			n++
		}
	}
	return n
}

// Reset clears the recorded transcript, keeping the scripted replies.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
