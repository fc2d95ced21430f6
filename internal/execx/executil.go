// Package execx runs external tools (interpreters, package managers, GPU
// diagnostics) with bounded time and optional output capture.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Cmd describes one external invocation.
type Cmd struct {
	Path    string
	Args    []string
	Env     map[string]string // additional env vars
	Dir     string            // working directory
	Timeout time.Duration     // zero means bounded only by ctx
	// Capture buffers stdout/stderr into the Result. When the runner is
	// verbose, captured output is also streamed line by line.
	Capture bool
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Result holds what a finished command produced.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner is the seam every component uses to start external programs.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// ExecRunner runs commands on the host.
type ExecRunner struct {
	Verbose bool
	Out     io.Writer // verbose stream target, defaults to os.Stdout
}

// Run starts c and waits for it. A non-zero exit yields an *ExitError; a
// missing binary wraps exec.ErrNotFound; an expired Timeout yields ErrTimeout.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	// inherit environment
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	var stdout, stderr bytes.Buffer
	switch {
	case c.Capture && r.Verbose:
		cmd.Stdout = io.MultiWriter(&stdout, &lineWriter{w: out})
		cmd.Stderr = io.MultiWriter(&stderr, &lineWriter{w: out})
	case c.Capture:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	default:
		cmd.Stdout = out
		cmd.Stderr = out
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && c.Timeout > 0 {
			return res, fmt.Errorf("%s: %w after %s", c.Path, ErrTimeout, c.Timeout)
		}
		return res, ctx.Err()
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		res.ExitCode = ee.ExitCode()
		return res, &ExitError{Cmd: c.String(), Code: res.ExitCode, Stderr: res.Stderr}
	}
	res.ExitCode = -1
	return res, err
}

// ErrTimeout is returned when a Cmd exceeds its own Timeout.
var ErrTimeout = errors.New("timed out")

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
}

// IsNotFound reports whether err means the program does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return true
	}
	var pe *os.PathError
	return errors.As(err, &pe) && errors.Is(pe.Err, os.ErrNotExist)
}

// Tail returns the last n non-empty lines of s.
func Tail(s string, n int) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// lineWriter forwards complete lines to w.
type lineWriter struct {
	w   io.Writer
	buf []byte
}

func (lw *lineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		fmt.Fprintf(lw.w, "    %s\n", bytes.TrimRight(lw.buf[:idx], "\r"))
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
