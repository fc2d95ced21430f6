// Package environment describes the two interpreter environments, checks that
// they work, and decides which one a run should use.
package environment

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/execx"
	"voxlaunch/pkg/types"
)

// Default directory names under the project root.
const (
	StandardDir = "venv"
	PortableDir = "python_embedded"
)

const livenessTimeout = 10 * time.Second

// Dirs names the environment directories relative to the project root.
type Dirs struct {
	Standard string
	Portable string
}

func (d Dirs) withDefaults() Dirs {
	if d.Standard == "" {
		d.Standard = StandardDir
	}
	if d.Portable == "" {
		d.Portable = PortableDir
	}
	return d
}

// Standard returns the venv layout under root.
func Standard(root string, dirs Dirs, goos string) types.EnvironmentDescriptor {
	dir := filepath.Join(root, dirs.withDefaults().Standard)
	if goos == "windows" {
		return types.EnvironmentDescriptor{
			Kind:           types.EnvStandard,
			Root:           dir,
			Interpreter:    filepath.Join(dir, "Scripts", "python.exe"),
			PackageManager: filepath.Join(dir, "Scripts", "pip.exe"),
			SitePackages:   filepath.Join(dir, "Lib", "site-packages"),
		}
	}
	return types.EnvironmentDescriptor{
		Kind:           types.EnvStandard,
		Root:           dir,
		Interpreter:    filepath.Join(dir, "bin", "python"),
		PackageManager: filepath.Join(dir, "bin", "pip"),
	}
}

// Portable returns the embeddable-distribution layout under root. The layout is
// the same on every host because the distribution only exists for Windows.
func Portable(root string, dirs Dirs) types.EnvironmentDescriptor {
	dir := filepath.Join(root, dirs.withDefaults().Portable)
	return types.EnvironmentDescriptor{
		Kind:           types.EnvPortable,
		Root:           dir,
		Interpreter:    filepath.Join(dir, "python.exe"),
		PackageManager: filepath.Join(dir, "Scripts", "pip.exe"),
		SitePackages:   filepath.Join(dir, "Lib", "site-packages"),
	}
}

// Layout picks the descriptor for kind.
func Layout(kind types.EnvKind, root string, dirs Dirs, goos string) types.EnvironmentDescriptor {
	if kind == types.EnvPortable {
		return Portable(root, dirs)
	}
	return Standard(root, dirs, goos)
}

// SitePackages resolves the package directory; standard layouts on Unix glob
// lib/python3*/site-packages.
func SitePackages(env types.EnvironmentDescriptor) (string, bool) {
	if env.SitePackages != "" {
		return env.SitePackages, fsutil.PathExists(env.SitePackages)
	}
	matches, _ := filepath.Glob(filepath.Join(env.Root, "lib", "python3*", "site-packages"))
	if len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// Exists reports whether the interpreter file is present, without running it.
func Exists(env types.EnvironmentDescriptor) bool {
	return fsutil.PathExists(env.Interpreter)
}

// Functional reports whether the interpreter and package manager exist and the
// interpreter answers --version within 10 seconds.
func Functional(ctx context.Context, r execx.Runner, env types.EnvironmentDescriptor) bool {
	if !fsutil.PathExists(env.Interpreter) || !fsutil.PathExists(env.PackageManager) {
		return false
	}
	_, err := r.Run(ctx, execx.Cmd{Path: env.Interpreter, Args: []string{"--version"}, Timeout: livenessTimeout, Capture: true})
	return err == nil
}

// CreateStandard builds the venv with the host interpreter.
func CreateStandard(ctx context.Context, r execx.Runner, host []string, env types.EnvironmentDescriptor) error {
	args := append(append([]string(nil), host[1:]...), "-m", "venv", env.Root)
	res, err := r.Run(ctx, execx.Cmd{Path: host[0], Args: args, Capture: true})
	if err != nil {
		if tail := execx.Tail(res.Stderr, 5); len(tail) > 0 {
			return fmt.Errorf("create virtual environment %s: %w: %s", env.Root, err, tail[len(tail)-1])
		}
		return fmt.Errorf("create virtual environment %s: %w", env.Root, err)
	}
	return nil
}
