// Package media drives the external download, transcription and encoding tools.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/okian/viralclip/pkg/logger"
)

// Default runner configuration constants.
const (
	DefaultWaitDelay = 5 * time.Second
	stderrTailBytes  = 4096
)

// ExecError describes a failed external command. Args are never included
// so credentials passed on the command line do not leak into logs.
type ExecError struct {
	Command  string
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + lastLine(e.Stderr)
	}
	return msg
}

func (e *ExecError) Unwrap() error { return e.Cause }

// Runner runs external processes. A cancelled context kills the process and,
// on unix, every process in its group; if pipes stay open, Wait gives up
// after waitDelay.
type Runner struct {
	waitDelay time.Duration
	log       logger.Logger
}

// RunnerOption applies a configuration option to the Runner.
type RunnerOption func(*Runner)

// WithWaitDelay bounds how long a killed process may keep its pipes open.
func WithWaitDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(log logger.Logger) RunnerOption {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRunner creates a runner with configuration options.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{waitDelay: DefaultWaitDelay, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes name with args and discards stdout.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.run(ctx, nil, name, args)
	return err
}

// Output executes name with args and returns its stdout.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	_, err := r.run(ctx, &stdout, name, args)
	if err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (r *Runner) run(ctx context.Context, stdout *bytes.Buffer, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.waitDelay
	killGroup(cmd)
	tail := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = tail
	if stdout != nil {
		cmd.Stdout = stdout
	}

	start := time.Now()
	err := cmd.Run()
	r.log.Debug(ctx, "command finished",
		logger.String("command", name),
		logger.Duration("elapsed", time.Since(start)),
		logger.Bool("ok", err == nil))
	if err == nil {
		return tail.String(), nil
	}

	execErr := &ExecError{Command: name, ExitCode: -1, Stderr: tail.String(), Cause: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		execErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		execErr.Cause = fmt.Errorf("%w: %w", ctxErr, err)
	}
	return execErr.Stderr, execErr
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
