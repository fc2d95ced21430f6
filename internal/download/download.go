// Package download fetches remote artifacts so that the destination path only
// ever holds a complete, verified file.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every network operation: connect, TLS handshake,
// response headers and each gap between body reads.
const DefaultTimeout = 30 * time.Second

// Task is one download. FinalPath is written only after the bytes are complete
// and, when ExpectedDigest is set, verified.
type Task struct {
	URL            string
	FinalPath      string
	TempPath       string // defaults to FinalPath + ".part"
	ExpectedDigest string // hex SHA-256, empty to skip
}

func (t Task) tempPath() string {
	if t.TempPath != "" {
		return t.TempPath
	}
	return t.FinalPath + ".part"
}

// ProgressFunc receives the running byte count; total is -1 when the server
// sent no Content-Length.
type ProgressFunc func(done, total int64)

// Fetcher executes Tasks.
type Fetcher struct {
	Client     *http.Client
	Timeout    time.Duration
	OnProgress ProgressFunc
}

// NewFetcher builds a Fetcher whose transport enforces timeout at every stage.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	// Client.Timeout stays zero: large archives may legitimately take minutes.
	return &Fetcher{Client: &http.Client{Transport: tr}, Timeout: timeout}
}

// DigestMismatchError carries both digests so the operator can compare them.
type DigestMismatchError struct {
	Expected, Actual string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s got %s", e.Expected, e.Actual)
}

// ErrStalled is returned when no body bytes arrive within the timeout.
var ErrStalled = errors.New("download stalled")

// Fetch runs t. On any failure the temp file is removed and FinalPath is left
// untouched.
func (f *Fetcher) Fetch(ctx context.Context, t Task) (err error) {
	if t.URL == "" || t.FinalPath == "" {
		return fmt.Errorf("download: url and destination are required")
	}
	client := f.Client
	if client == nil {
		client = NewFetcher(f.Timeout).Client
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tmp := t.tempPath()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", t.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %s", t.URL, resp.Status)
	}

	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	h := sha256.New()
	total := resp.ContentLength
	if total <= 0 {
		total = -1
	}
	body := &stallReader{r: resp.Body, timeout: timeout, cancel: cancel}
	body.arm()
	n, copyErr := io.Copy(io.MultiWriter(out, h), &progressReader{r: body, total: total, fn: f.OnProgress})
	body.disarm()
	closeErr := out.Close()
	if copyErr != nil {
		if cause := context.Cause(ctx); errors.Is(cause, ErrStalled) {
			return fmt.Errorf("GET %s: %w after %s", t.URL, ErrStalled, timeout)
		}
		return fmt.Errorf("GET %s: %w", t.URL, copyErr)
	}
	if closeErr != nil {
		return closeErr
	}
	if total > 0 && n != total {
		return fmt.Errorf("GET %s: short body %d of %d bytes", t.URL, n, total)
	}

	if want := strings.ToLower(strings.TrimSpace(t.ExpectedDigest)); want != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if got != want {
			return &DigestMismatchError{Expected: want, Actual: got}
		}
	}
	return os.Rename(tmp, t.FinalPath)
}

type progressReader struct {
	r     io.Reader
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		if p.fn != nil {
			p.fn(p.done, p.total)
		}
	}
	return n, err
}

// stallReader cancels the request when a single Read waits longer than timeout.
type stallReader struct {
	r       io.Reader
	timeout time.Duration
	cancel  context.CancelCauseFunc
	mu      sync.Mutex
	timer   *time.Timer
}

func (s *stallReader) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = time.AfterFunc(s.timeout, func() { s.cancel(ErrStalled) })
}

func (s *stallReader) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *stallReader) Read(b []byte) (int, error) {
	n, err := s.r.Read(b)
	if n > 0 {
		s.mu.Lock()
		s.timer.Reset(s.timeout)
		s.mu.Unlock()
	}
	return n, err
}
