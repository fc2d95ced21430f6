package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"err":     zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_LevelAndRunID(t *testing.T) {
	var buf bytes.Buffer
	l, id := New(Options{Level: "warn", Out: &buf, RunID: "run-1"})
	assert.Equal(t, "run-1", id)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "run-1")
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	l, id := New(Options{Level: "error", Verbose: true, Out: &buf})
	assert.NotEmpty(t, id)
	l.Debug().Msg("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestLevelFromEnv(t *testing.T) {
	env := func(k string) string {
		if k == EnvLevel {
			return "debug"
		}
		return ""
	}
	assert.Equal(t, "error", LevelFromEnv("error", env))
	assert.Equal(t, "debug", LevelFromEnv("", env))
	assert.Equal(t, DefaultLevel, LevelFromEnv("", func(string) string { return "" }))
}
