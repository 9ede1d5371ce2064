// Package processtest provides a scriptable process.Runner for tests.
package processtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spherical/image-extractor/internal/process"
)

// Handler emulates one executable.
type Handler func(args []string) (*process.Result, error)

// Call records one invocation.
type Call struct {
	Executable string
	Args       []string
}

// FakeRunner dispatches Run calls to handlers keyed by executable path.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{handlers: make(map[string]Handler)}
}

// Handle registers the handler for an executable.
func (f *FakeRunner) Handle(executable string, h Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[executable] = h
	return f
}

// Run implements process.Runner.
func (f *FakeRunner) Run(_ context.Context, executable string, args ...string) (*process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Executable: executable, Args: append([]string(nil), args...)})
	h, ok := f.handlers[executable]
	f.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no handler for %s", executable)
	}
	return h(args)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the invocations of one executable.
func (f *FakeRunner) CallsTo(executable string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Executable == executable {
			out = append(out, c)
		}
	}
	return out
}

// Exit returns a handler that always exits with the given code and output.
func Exit(code int, stdout, stderr string) Handler {
	return func([]string) (*process.Result, error) {
		return &process.Result{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
	}
}

// PDFImages emulates the image extraction tool: the last argument is the
// output root and each entry in files is written as <root>-<name>.
func PDFImages(files map[string][]byte) Handler {
	return func(args []string) (*process.Result, error) {
		if len(args) == 0 {
			return &process.Result{ExitCode: 99, Stderr: "usage"}, nil
		}
		root := args[len(args)-1]
		for name, data := range files {
			if err := os.WriteFile(root+"-"+name, data, 0644); err != nil {
				return nil, err
			}
		}
		return &process.Result{}, nil
	}
}

// Unzip emulates the archive tool by writing files (slash separated paths)
// under the directory following -d.
func Unzip(files map[string][]byte) Handler {
	return func(args []string) (*process.Result, error) {
		dest := ""
		for i, a := range args {
			if a == "-d" && i+1 < len(args) {
				dest = args[i+1]
			}
		}
		if dest == "" {
			return &process.Result{ExitCode: 10, Stderr: "missing -d"}, nil
		}
		for name, data := range files {
			path := filepath.Join(dest, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return nil, err
			}
		}
		return &process.Result{}, nil
	}
}
