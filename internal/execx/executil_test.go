package execx

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestTail(t *testing.T) {
	got := Tail("a\n\nb\r\nc\nd\ne\nf\n", 5)
	want := []string{"b", "c", "d", "e", "f"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", got, want)
	}
	if len(Tail("", 5)) != 0 {
		t.Fatalf("expected no lines for empty input")
	}
}

func TestRun_ExitCodeAndCapture(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := &ExecRunner{}
	res, err := r.Run(context.Background(), Cmd{Path: "sh", Args: []string{"-c", "echo out; echo boom >&2; exit 3"}, Capture: true})
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if ee.Code != 3 || res.ExitCode != 3 {
		t.Fatalf("exit code: %d / %d", ee.Code, res.ExitCode)
	}
	if strings.TrimSpace(res.Stdout) != "out" || strings.TrimSpace(res.Stderr) != "boom" {
		t.Fatalf("capture mismatch: %q %q", res.Stdout, res.Stderr)
	}
}

func TestRun_NotFound(t *testing.T) {
	r := &ExecRunner{}
	_, err := r.Run(context.Background(), Cmd{Path: "definitely-not-a-real-binary-xyz", Capture: true})
	if err == nil || !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sleep")
	}
	r := &ExecRunner{}
	start := time.Now()
	_, err := r.Run(context.Background(), Cmd{Path: "sleep", Args: []string{"5"}, Timeout: 100 * time.Millisecond, Capture: true})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout not enforced")
	}
}
