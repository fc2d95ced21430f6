// Package logging builds the structured diagnostic logger. Step-by-step user
// output goes through termui; this logger is for the record of what happened.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// EnvLevel is consulted when no level flag is given.
const EnvLevel = "VOXLAUNCH_LOG_LEVEL"

// DefaultLevel keeps the console quiet unless something went wrong.
const DefaultLevel = "warn"

// ParseLevel maps a user level name onto zerolog. Unknown names fall back to
// info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "none", "disabled":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// Options selects the level and destination.
type Options struct {
	Level   string
	Verbose bool
	Out     io.Writer
	RunID   string
}

// New returns a console logger tagged with a run id. Verbose forces debug.
func New(o Options) (zerolog.Logger, string) {
	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	runID := o.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	level := ParseLevel(o.Level)
	if o.Verbose && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !isTTY(out)}
	l := zerolog.New(cw).Level(level).With().Timestamp().Str("run_id", runID).Logger()
	return l, runID
}

// LevelFromEnv returns flag when set, else the environment, else DefaultLevel.
func LevelFromEnv(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	if getenv != nil {
		if v := getenv(EnvLevel); v != "" {
			return v
		}
	}
	return DefaultLevel
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
