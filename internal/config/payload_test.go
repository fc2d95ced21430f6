package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadServerAddr_Missing(t *testing.T) {
	addr, err := ReadServerAddr(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ServerAddr{Host: "0.0.0.0", Port: 8004}, addr)
	assert.Equal(t, "127.0.0.1", addr.ProbeHost())
	assert.Equal(t, "localhost", addr.BrowseHost())
}

func TestReadServerAddr_YAML(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "config.yaml", `
tts_engine:
  device: cuda
server:
  host: "127.0.0.2"   # bind address
  port: 9123
ui:
  port: 1
`)
	addr, err := ReadServerAddr(p)
	require.NoError(t, err)
	assert.Equal(t, ServerAddr{Host: "127.0.0.2", Port: 9123}, addr)
	assert.Equal(t, "127.0.0.2:9123", addr.String())
}

func TestReadServerAddr_FallsBackToLineMatching(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "config.yaml", "server:\n  host: '10.0.0.5'\n  port: 8100\n\tbroken: [\n")
	addr, err := ReadServerAddr(p)
	assert.Error(t, err, "the YAML problem is reported")
	assert.Equal(t, ServerAddr{Host: "10.0.0.5", Port: 8100}, addr)
}

func TestReadServerAddr_PortOutOfRange(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "config.yaml", "server:\n  port: 70000\n")
	addr, err := ReadServerAddr(p)
	assert.Error(t, err)
	assert.Equal(t, 8004, addr.Port)
}

func TestReadServerAddr_IPv6Wildcard(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "config.yaml", "server:\n  host: '::'\n")
	addr, err := ReadServerAddr(p)
	require.NoError(t, err)
	assert.Equal(t, "::1", addr.ProbeHost())
	assert.Equal(t, "[::]:8004", addr.String())
}

func TestLoadEnv_DotEnvUnderProcess(t *testing.T) {
	d := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(d, ".env"), []byte("VOXLAUNCH_TEST_ONLY_A=dot\nVOXLAUNCH_TEST_ONLY_B=dot\n"), 0o644))
	t.Setenv("VOXLAUNCH_TEST_ONLY_B", "proc")
	env, err := LoadEnv(d)
	require.NoError(t, err)
	assert.Equal(t, "dot", env.Str("VOXLAUNCH_TEST_ONLY_A", ""))
	assert.Equal(t, "proc", env.Str("VOXLAUNCH_TEST_ONLY_B", ""))

	env, err = LoadEnv(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "x", env.Str("VOXLAUNCH_TEST_ONLY_A", "x"))
}
