package infra

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeCall records one command invocation.
type fakeCall struct {
	Name string
	Args []string
}

// fakeRunner is a test double for CommandRunner. Responses are keyed by the
// first argument (the tmux subcommand, or "-e"/"-l" for osascript).
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	outputs map[string]string
	errs    map[string]error
	hook    func(name string, args []string) error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: append([]string(nil), args...)})
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(name, args); err != nil {
			return nil, err
		}
	}

	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return []byte(f.outputs[key]), nil
}

func (f *fakeRunner) callsFor(sub string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if len(c.Args) > 0 && c.Args[0] == sub {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRunner) lastScript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	args := f.calls[len(f.calls)-1].Args
	return args[len(args)-1]
}

func errWithStderr(msg string) error {
	return errors.New("tmux: exit status 1: " + strings.TrimSpace(msg))
}

var _ CommandRunner = (*fakeRunner)(nil)
