package environment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxlaunch/internal/execx"
	"voxlaunch/internal/execx/exectest"
	"voxlaunch/pkg/types"
)

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, nil, 0o755))
}

func TestLayouts(t *testing.T) {
	root := "/proj"
	s := Standard(root, Dirs{}, "linux")
	assert.Equal(t, filepath.Join(root, "venv", "bin", "python"), s.Interpreter)
	assert.Equal(t, filepath.Join(root, "venv", "bin", "pip"), s.PackageManager)
	assert.Empty(t, s.SitePackages)

	w := Standard(root, Dirs{}, "windows")
	assert.Equal(t, filepath.Join(root, "venv", "Scripts", "python.exe"), w.Interpreter)

	p := Layout(types.EnvPortable, root, Dirs{Portable: "rt"}, "linux")
	assert.Equal(t, types.EnvPortable, p.Kind)
	assert.Equal(t, filepath.Join(root, "rt", "python.exe"), p.Interpreter)
	assert.Equal(t, filepath.Join(root, "rt", "Scripts", "pip.exe"), p.PackageManager)
	assert.Equal(t, filepath.Join(root, "rt", "Lib", "site-packages"), p.SitePackages)
}

func TestSitePackages_Glob(t *testing.T) {
	root := t.TempDir()
	env := Standard(root, Dirs{}, "linux")
	_, ok := SitePackages(env)
	assert.False(t, ok)
	want := filepath.Join(env.Root, "lib", "python3.11", "site-packages")
	require.NoError(t, os.MkdirAll(want, 0o755))
	got, ok := SitePackages(env)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFunctional(t *testing.T) {
	root := t.TempDir()
	env := Portable(root, Dirs{})
	r := &exectest.Runner{}
	assert.False(t, Functional(context.Background(), r, env), "missing files")
	assert.Zero(t, len(r.Calls))

	touch(t, env.Interpreter)
	touch(t, env.PackageManager)
	assert.True(t, Functional(context.Background(), r, env))

	broken := (&exectest.Runner{}).On("--version", exectest.Response{Err: errors.New("bad image")})
	assert.False(t, Functional(context.Background(), broken, env))
}

func TestCreateStandard(t *testing.T) {
	r := (&exectest.Runner{}).On("-m venv", exectest.Response{
		Result: execx.Result{Stderr: "Error: ensurepip is not available\n"},
		Err:    &execx.ExitError{Cmd: "python3 -m venv", Code: 1},
	})
	env := Standard("/proj", Dirs{}, "linux")
	err := CreateStandard(context.Background(), r, []string{"py", "-3"}, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensurepip")
	require.Len(t, r.Calls, 1)
	assert.Equal(t, []string{"-3", "-m", "venv", env.Root}, r.Calls[0].Args)
}
