// Package installer installs the payload's Python dependencies for a profile,
// applies compatibility shims and verifies the result.
package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/execx"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// Installer runs the package manager of one environment.
type Installer struct {
	Root          string
	Env           types.EnvironmentDescriptor
	Runner        execx.Runner
	Console       *termui.Console
	Log           zerolog.Logger
	Verbose       bool
	Manifests     func(types.Profile) string
	Supplementary string // installed with --no-deps for nvidia-cu128
}

// Failure is a fatal installation error. It carries the last lines of the
// package manager's stderr and the commands an operator can run by hand.
type Failure struct {
	Step     string
	Tail     []string
	Commands []string
	Err      error
}

func (e *Failure) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *Failure) Unwrap() error { return e.Err }

// UpgradePackageManager upgrades pip in place. Failure is only a warning.
func (i *Installer) UpgradePackageManager(ctx context.Context) error {
	i.Console.Substep(termui.Info, "Upgrading pip...")
	_, err := i.Runner.Run(ctx, execx.Cmd{
		Path:    i.Env.Interpreter,
		Args:    []string{"-m", "pip", "install", "--upgrade", "pip"},
		Dir:     i.Root,
		Capture: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		i.Console.Substep(termui.Warn, "pip upgrade failed")
		i.Log.Warn().Err(err).Msg("pip upgrade failed")
		return nil
	}
	i.Console.Substep(termui.Done, "pip upgraded")
	return nil
}

// Install installs the manifest for p, plus the supplementary package for
// nvidia-cu128. Nothing is recorded on failure.
func (i *Installer) Install(ctx context.Context, p types.Profile) error {
	manifest := i.Manifests(p)
	if manifest == "" {
		return &Failure{Step: "select manifest", Err: fmt.Errorf("no manifest for profile %q", p)}
	}
	manifestPath := filepath.Join(i.Root, manifest)
	if !fsutil.PathExists(manifestPath) {
		i.Console.Error("Requirements file not found: %s", manifest)
		return &Failure{Step: "read manifest", Err: fmt.Errorf("%s not found", manifestPath), Commands: i.manualCommands(manifest, p)}
	}

	i.Console.Substep(termui.Info, "Installing from %s...", manifest)
	args := []string{"install", "--no-warn-script-location", "-r", manifestPath}
	if err := i.pip(ctx, "Installing dependencies from "+manifest, args); err != nil {
		i.Console.Substep(termui.Fail, "Dependency installation failed")
		return i.failure("install "+manifest, err, manifest, p)
	}
	i.Console.Substep(termui.Done, "Dependencies installed")

	if p == types.ProfileNVIDIACU128 && i.Supplementary != "" {
		i.Console.Substep(termui.Info, "Installing Chatterbox TTS (--no-deps to preserve PyTorch)...")
		if err := i.pip(ctx, "Installing Chatterbox TTS", []string{"install", "--no-deps", i.Supplementary}); err != nil {
			i.Console.Substep(termui.Fail, "Chatterbox TTS installation failed")
			return i.failure("install supplementary package", err, manifest, p)
		}
		i.Console.Substep(termui.Done, "Chatterbox TTS installed")
	}
	return nil
}

// pip runs the package manager. Without verbose output a spinner covers the
// call and stderr is kept for the failure report.
func (i *Installer) pip(ctx context.Context, desc string, args []string) error {
	cmd := execx.Cmd{Path: i.Env.PackageManager, Args: args, Dir: i.Root, Capture: true}
	if i.Verbose {
		i.Console.Substep(termui.Info, "Running: %s", cmd)
		_, err := i.Runner.Run(ctx, cmd)
		return err
	}
	sp := i.Console.Spin(ctx, desc+"...")
	res, err := i.Runner.Run(ctx, cmd)
	sp.Stop()
	if err != nil {
		var ee *execx.ExitError
		if errors.As(err, &ee) {
			i.Console.Substep(termui.Fail, "Command failed with exit code %d", ee.Code)
		}
		return &tailError{err: err, tail: execx.Tail(res.Stderr, 5)}
	}
	return nil
}

type tailError struct {
	err  error
	tail []string
}

func (e *tailError) Error() string { return e.err.Error() }
func (e *tailError) Unwrap() error { return e.err }

func (i *Installer) failure(step string, err error, manifest string, p types.Profile) error {
	f := &Failure{Step: step, Err: err, Commands: i.manualCommands(manifest, p)}
	var te *tailError
	if errors.As(err, &te) {
		f.Tail = te.tail
		f.Err = te.err
	}
	return f
}

func (i *Installer) manualCommands(manifest string, p types.Profile) []string {
	pip := quote(i.Env.PackageManager)
	cmds := []string{pip + " install -r " + manifest}
	if p == types.ProfileNVIDIACU128 && i.Supplementary != "" {
		cmds = append(cmds, pip+" install --no-deps "+i.Supplementary)
	}
	return cmds
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
