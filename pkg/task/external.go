package task

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
)

// External option keys.
const (
	OptCommand = "command"
	OptTimeout = "timeout" // optional Go duration, e.g. "90s"
	OptDir     = "dir"     // optional working directory
)

// maxOutputInError bounds the process output embedded in a failure.
const maxOutputInError = 2048

// External runs an operating-system process. The job fails when the
// process cannot start, exits non-zero, or exceeds its timeout.
type External struct {
	options map[string]string
	argv    []string
	timeout time.Duration
}

// NewExternal validates the command option and parses it with shell
// quoting rules.
func NewExternal(opts map[string]string) (*External, error) {
	o, err := requireOptions(KindExternal, opts, OptCommand)
	if err != nil {
		return nil, err
	}

	argv, err := shellquote.Split(o[OptCommand])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTaskDescriptor, "external task command: %v", err)
	}
	if len(argv) == 0 {
		return nil, errors.Wrap(ErrInvalidTaskDescriptor, "external task command is empty")
	}

	var timeout time.Duration
	if raw := strings.TrimSpace(o[OptTimeout]); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return nil, errors.Wrapf(ErrInvalidTaskDescriptor, "external task timeout %q", raw)
		}
	}

	return &External{options: o, argv: argv, timeout: timeout}, nil
}

func (e *External) Kind() Kind { return KindExternal }
func (e *External) Options() map[string]string { return copyOptions(e.options) }

// Command returns the configured command line.
func (e *External) Command() string { return e.options[OptCommand] }

// Timeout returns the per-run limit, zero when unlimited.
func (e *External) Timeout() time.Duration { return e.timeout }

// Argv returns the program and arguments that a run with args would use.
func (e *External) Argv(args []any) []string {
	argv := make([]string, 0, len(e.argv)+len(args))
	argv = append(argv, e.argv...)
	for _, a := range args {
		argv = append(argv, fmt.Sprint(a))
	}
	return argv
}

func (e *External) Execute(ctx context.Context, args []any) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	argv := e.Argv(args)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if dir := e.options[OptDir]; dir != "" {
		cmd.Dir = dir
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrapf(err, "command %q timed out after %s", e.Command(), e.timeout)
		}
		return errors.Wrapf(err, "command %q failed: %s", e.Command(), tail(out.String(), maxOutputInError))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
