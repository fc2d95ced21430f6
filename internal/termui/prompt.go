package termui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
)

// ErrAborted means the operator closed input or pressed Ctrl-C at a prompt.
var ErrAborted = errors.New("aborted by user")

// Prompter reads one answer per call. Cancelling ctx abandons the prompt with
// ErrAborted.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// NewPrompter uses line editing when stdin and stdout are terminals and a plain
// line reader otherwise.
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if IsTerminal(in) && IsTerminal(os.Stdout) {
		return linerPrompter{}
	}
	return NewLinePrompter(in, out)
}

type linerPrompter struct{}

// liner owns the terminal in raw mode, so Ctrl-C arrives as a keystroke and
// not as a signal.
func (linerPrompter) Prompt(ctx context.Context, label string) (string, error) {
	if ctx.Err() != nil {
		return "", ErrAborted
	}
	// A fresh State per prompt keeps the terminal in cooked mode between prompts.
	st := liner.NewLiner()
	defer st.Close()
	st.SetCtrlCAborts(true)
	s, err := st.Prompt(label)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	return s, err
}

// LinePrompter reads newline-terminated answers from any reader. A single
// goroutine owns the reader so an abandoned prompt does not lose the next line.
type LinePrompter struct {
	in    io.Reader
	out   io.Writer
	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	text string
	err  error
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: out, lines: make(chan lineResult)}
}

func (p *LinePrompter) read() {
	sc := bufio.NewScanner(p.in)
	for sc.Scan() {
		p.lines <- lineResult{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	p.lines <- lineResult{err: err}
	close(p.lines)
}

func (p *LinePrompter) Prompt(ctx context.Context, label string) (string, error) {
	if ctx.Err() != nil {
		return "", ErrAborted
	}
	p.once.Do(func() { go p.read() })
	fmt.Fprint(p.out, label)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ErrAborted
	case r, ok := <-p.lines:
		if !ok || errors.Is(r.err, io.EOF) {
			fmt.Fprintln(p.out)
			return "", ErrAborted
		}
		if r.err != nil {
			fmt.Fprintln(p.out)
			return "", r.err
		}
		return r.text, nil
	}
}

// Choose shows a numbered menu and returns the 1-based selection. Empty input
// picks def; anything out of range asks again.
func Choose(ctx context.Context, p Prompter, c *Console, options []string, def int) (int, error) {
	for i, o := range options {
		marker := ""
		if i+1 == def {
			marker = " (default)"
		}
		c.Println("  [%d] %s%s", i+1, o, marker)
	}
	c.Println("")
	for {
		ans, err := p.Prompt(ctx, fmt.Sprintf("  Enter choice [1-%d] (default %d): ", len(options), def))
		if err != nil {
			return 0, err
		}
		ans = strings.TrimSpace(ans)
		if ans == "" {
			return def, nil
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(options) {
			return n, nil
		}
		c.Substep(Warn, "Invalid choice %q, enter a number between 1 and %d", ans, len(options))
	}
}

// Confirm asks a y/n question; empty input returns def.
func Confirm(ctx context.Context, p Prompter, label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		ans, err := p.Prompt(ctx, fmt.Sprintf("%s (%s): ", label, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(ans)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
