package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voxlaunch/internal/config"
	"voxlaunch/internal/termui"
)

const (
	dotsPerLine  = 30
	stderrTailSz = 4096
)

// ErrReadinessTimeout means the payload never opened its port within ReadyTimeout.
var ErrReadinessTimeout = errors.New("server did not become ready in time")

// EarlyExitError is returned when the payload exits before it is ready.
type EarlyExitError struct {
	Code int
	Tail string
}

func (e *EarlyExitError) Error() string {
	return fmt.Sprintf("server exited before becoming ready (exit code %d)", e.Code)
}

// Spec describes the payload process.
type Spec struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
	Stdout  io.Writer
	Stderr  io.Writer
}

// Supervisor owns one payload process from launch to exit.
type Supervisor struct {
	Budgets Budgets
	Console *termui.Console
	Log     zerolog.Logger
	Now     func() time.Time

	mu       sync.Mutex
	state    State
	history  []Transition
	cmd      *exec.Cmd
	done     chan struct{}
	exitCode int
	tail     *tailBuffer
}

func New(b Budgets, c *termui.Console, log zerolog.Logger) *Supervisor {
	return &Supervisor{Budgets: b, Console: c, Log: log, Now: time.Now}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of every transition so far.
func (s *Supervisor) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition(nil), s.history...)
}

// Enter records a transition. The orchestrator uses it for the provisioning
// phases that happen before the payload exists.
func (s *Supervisor) Enter(to State, budget time.Duration) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.history = append(s.history, Transition{From: from, To: to, At: s.Now(), Budget: budget})
	s.mu.Unlock()
	s.Log.Debug().Str("from", from.String()).Str("to", to.String()).Dur("budget", budget).Msg("state")
}

// Launch starts the payload and a watcher that records its exit.
func (s *Supervisor) Launch(spec Spec) error {
	s.Enter(Launching, 0)
	cmd := exec.Command(spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	stdout, stderr := spec.Stdout, spec.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	tail := &tailBuffer{max: stderrTailSz}
	cmd.Stdout = stdout
	cmd.Stderr = io.MultiWriter(stderr, tail)
	if err := cmd.Start(); err != nil {
		s.Enter(FailedToStart, 0)
		return fmt.Errorf("start %s: %w", spec.Program, err)
	}
	s.Log.Info().Int("pid", cmd.Process.Pid).Str("program", spec.Program).Strs("args", spec.Args).Msg("payload started")

	done := make(chan struct{})
	s.mu.Lock()
	s.cmd, s.done, s.tail = cmd, done, tail
	s.mu.Unlock()
	go func() {
		err := cmd.Wait()
		code := 0
		if err != nil {
			code = -1
			var ee *exec.ExitError
			if errors.As(err, &ee) {
				code = ee.ExitCode()
			}
		}
		s.mu.Lock()
		s.exitCode = code
		s.mu.Unlock()
		close(done)
	}()
	return nil
}

// Exited reports whether the payload has exited and with which code.
func (s *Supervisor) Exited() (bool, int) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false, 0
	}
	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return true, s.exitCode
	default:
		return false, 0
	}
}

// AwaitReady polls addr until it accepts a TCP connection. A dot is printed
// every DotInterval so long first starts do not look hung.
func (s *Supervisor) AwaitReady(ctx context.Context, addr config.ServerAddr) error {
	b := s.Budgets
	s.Enter(AwaitingReady, b.ReadyTimeout)
	host := addr.ProbeHost()
	start := s.Now()
	deadline := start.Add(b.ReadyTimeout)
	lastDot := start
	dots := 0
	defer func() {
		if dots > 0 {
			s.Console.Println("")
		}
	}()

	poll := time.NewTicker(b.PollInterval)
	defer poll.Stop()
	for {
		if exited, code := s.Exited(); exited {
			s.Enter(FailedToStart, 0)
			return &EarlyExitError{Code: code, Tail: s.stderrTail()}
		}
		if Dial(host, addr.Port, b.DialTimeout) {
			s.Enter(Ready, 0)
			s.Log.Info().Str("addr", addr.String()).Dur("waited", s.Now().Sub(start)).Msg("payload ready")
			return nil
		}
		now := s.Now()
		if !now.Before(deadline) {
			s.Enter(FailedToStart, 0)
			return ErrReadinessTimeout
		}
		if b.DotInterval > 0 && now.Sub(lastDot) >= b.DotInterval {
			lastDot = now
			dots++
			_, _ = s.Console.Write([]byte("."))
			if dots%dotsPerLine == 0 {
				s.Console.Println("")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
		}
	}
}

// Monitor blocks while the payload is alive. It returns the exit code when
// the payload exits on its own, or ctx.Err() when the run is interrupted.
func (s *Supervisor) Monitor(ctx context.Context) (int, error) {
	t := time.NewTicker(s.Budgets.LivenessInterval)
	defer t.Stop()
	for {
		if exited, code := s.Exited(); exited {
			s.Log.Info().Int("exit_code", code).Msg("payload exited")
			return code, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}

// Shutdown asks the payload to stop, escalates to a kill after GraceTimeout,
// and gives up after KillTimeout. It is safe to call more than once.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		s.Enter(Stopped, 0)
		return
	}
	if exited, _ := s.Exited(); exited {
		s.Enter(Stopped, 0)
		return
	}

	b := s.Budgets
	s.Enter(ShuttingDown, b.GraceTimeout)
	s.Console.Substep(termui.Info, "Stopping server...")
	if err := terminate(cmd.Process); err != nil {
		s.Log.Debug().Err(err).Msg("terminate")
	}
	if waitClosed(done, b.GraceTimeout) {
		s.Console.Substep(termui.Done, "Server stopped")
		s.Enter(Stopped, 0)
		return
	}

	s.Console.Substep(termui.Warn, "Server did not stop in time, force stopping...")
	if err := cmd.Process.Kill(); err != nil {
		s.Log.Debug().Err(err).Msg("kill")
	}
	if !waitClosed(done, b.KillTimeout) {
		s.Console.Substep(termui.Warn, "Could not confirm the server stopped (pid %d)", cmd.Process.Pid)
		s.Log.Warn().Int("pid", cmd.Process.Pid).Msg("payload may still be running")
	}
	s.Enter(Stopped, 0)
}

func (s *Supervisor) stderrTail() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tail == nil {
		return ""
	}
	return s.tail.String()
}

func waitClosed(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

// PrependPath returns environ with dirs placed in front of the variable key
// (PATH, LD_LIBRARY_PATH). Later entries of the same key are dropped.
func PrependPath(environ []string, key string, dirs ...string) []string {
	if len(dirs) == 0 {
		return environ
	}
	out := make([]string, 0, len(environ)+1)
	existing := ""
	found := false
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		if strings.EqualFold(k, key) {
			if !found {
				existing, found = v, true
			}
			continue
		}
		out = append(out, kv)
	}
	val := strings.Join(dirs, string(os.PathListSeparator))
	if existing != "" {
		val += string(os.PathListSeparator) + existing
	}
	return append(out, key+"="+val)
}

type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
