// Package termui renders the launcher's step-by-step terminal output and
// handles operator prompts.
package termui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// Status selects the icon and color of a substep line.
type Status int

const (
	Info Status = iota
	Done
	Warn
	Fail
	Working
)

var icons = map[Status]string{
	Info:    "→",
	Done:    "✓",
	Warn:    "⚠",
	Fail:    "✗",
	Working: "●",
}

const indent = "      "

// Console writes formatted launcher output. It is safe for concurrent use so
// the spinner and the main flow can share it.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	header  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	dim     lipgloss.Style
	box     lipgloss.Style
}

// New builds a Console for out. Colors are used only when out is a terminal.
func New(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		header:  r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("10")),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
		dim:     r.NewStyle().Faint(true),
		box: r.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 2),
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool { return term.IsTerminal(int(f.Fd())) }

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Banner prints the launcher title.
func (c *Console) Banner(title string) {
	rule := strings.Repeat("=", 60)
	c.printf("\n%s\n   %s\n%s\n\n", rule, c.header.Render(title), rule)
}

// Header prints a section heading.
func (c *Console) Header(text string) { c.printf("\n%s\n", c.header.Render(text)) }

// Step prints "[n/total] message".
func (c *Console) Step(n, total int, message string) {
	c.printf("\n[%d/%d] %s\n", n, total, message)
}

// Substep prints an indented status line.
func (c *Console) Substep(s Status, format string, args ...any) {
	icon := icons[s]
	switch s {
	case Done:
		icon = c.success.Render(icon)
	case Warn:
		icon = c.warning.Render(icon)
	case Fail:
		icon = c.failure.Render(icon)
	}
	c.printf("%s%s %s\n", indent, icon, fmt.Sprintf(format, args...))
}

// Println prints a plain line.
func (c *Console) Println(format string, args ...any) { c.printf(format+"\n", args...) }

// Success, Warning and Error print a colored line.
func (c *Console) Success(format string, args ...any) {
	c.printf("%s\n", c.success.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Warning(format string, args ...any) {
	c.printf("%s\n", c.warning.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	c.printf("%s\n", c.failure.Render(fmt.Sprintf(format, args...)))
}

// Hint prints a dimmed indented line.
func (c *Console) Hint(format string, args ...any) {
	c.printf("%s  %s\n", indent, c.dim.Render(fmt.Sprintf(format, args...)))
}

// Box frames lines in a bordered panel.
func (c *Console) Box(lines ...string) {
	c.printf("\n%s\n\n", c.box.Render(strings.Join(lines, "\n")))
}

// Write lets callers print raw fragments such as readiness dots.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// ClearLine erases the current terminal line.
func (c *Console) ClearLine() { c.printf("\r%s\r", strings.Repeat(" ", 70)) }

// Progress returns a download progress callback that redraws one line. With a
// known total it prints in 5% steps; otherwise it prints the byte count at most
// ten times a second. Finish must be called when the transfer ends.
func (c *Console) Progress(desc string) (update func(done, total int64), finish func()) {
	last := -1
	lim := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	drew := false
	update = func(done, total int64) {
		if total > 0 {
			pct := int(done * 100 / total)
			if pct > 100 {
				pct = 100
			}
			pct -= pct % 5
			if pct == last {
				return
			}
			last = pct
			drew = true
			c.printf("\r%s%s %s... %d%% (%s/%s)", indent, icons[Working], desc, pct,
				humanize.Bytes(uint64(done)), humanize.Bytes(uint64(total)))
			return
		}
		if !lim.Allow() {
			return
		}
		drew = true
		c.printf("\r%s%s %s... %s", indent, icons[Working], desc, humanize.Bytes(uint64(done)))
	}
	finish = func() {
		if drew {
			c.printf("\n")
		}
	}
	return update, finish
}
