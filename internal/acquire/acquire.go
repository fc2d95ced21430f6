// Package acquire builds the portable interpreter environment from the
// embeddable distribution: download, verify, extract, patch, bootstrap pip.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/download"
	"voxlaunch/internal/environment"
	"voxlaunch/internal/execx"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// Temporary artifacts live in the project root and never survive Ensure.
const (
	archiveName   = "_python_embedded.zip"
	bootstrapName = "_get-pip.py"
)

// Source says where the distribution and the pip bootstrap come from.
type Source struct {
	Version      string
	ArchiveURL   string
	ArchiveSHA   string // empty skips the digest check
	BootstrapURL string
}

// Pipeline owns the portable environment directory while it runs.
type Pipeline struct {
	Root    string
	Env     types.EnvironmentDescriptor
	Source  Source
	Fetcher *download.Fetcher
	Runner  execx.Runner
	Console *termui.Console
	Log     zerolog.Logger
	Verbose bool
	Remove  fsutil.RemoveOptions
}

// Result summarises a run.
type Result struct {
	Reused          bool
	BytesDownloaded int64
	MovedAside      string
}

// StepError identifies the pipeline step that failed. All of them are
// recoverable: the caller may fall back to a standard environment.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

func fail(step string, err error) error { return &StepError{Step: step, Err: err} }

// Ensure makes the portable environment functional. An environment that
// already passes the liveness check is reused without touching the network.
func (p *Pipeline) Ensure(ctx context.Context) (res Result, err error) {
	archive := filepath.Join(p.Root, archiveName)
	bootstrap := filepath.Join(p.Root, bootstrapName)
	// Also sweeps .part files left by a run that was killed mid-download.
	defer func() {
		for _, f := range []string{archive, archive + ".part", bootstrap, bootstrap + ".part"} {
			if rmErr := os.Remove(f); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				p.Log.Warn().Err(rmErr).Str("path", f).Msg("temporary file left behind")
			}
		}
	}()

	if environment.Functional(ctx, p.Runner, p.Env) {
		p.Console.Substep(termui.Done, "Portable Python %s already set up", p.Source.Version)
		return Result{Reused: true}, nil
	}

	if fsutil.PathExists(p.Env.Root) {
		rr, err := fsutil.RemoveTree(p.Env.Root, p.Remove)
		if err != nil {
			p.Console.Substep(termui.Fail, "Could not clean up partial install")
			return res, fail("cleanup", err)
		}
		if rr.MovedTo != "" {
			res.MovedAside = rr.MovedTo
			p.Console.Substep(termui.Warn, "Previous files were locked; moved to %s", rr.MovedTo)
		}
	}

	p.Console.Substep(termui.Info, "Setting up portable Python %s environment...", p.Source.Version)

	n, err := p.fetch(ctx, fmt.Sprintf("Downloading Python %s embeddable package", p.Source.Version),
		download.Task{URL: p.Source.ArchiveURL, FinalPath: archive, ExpectedDigest: p.Source.ArchiveSHA})
	res.BytesDownloaded += n
	if err != nil {
		var dm *download.DigestMismatchError
		if errors.As(err, &dm) {
			p.Console.Substep(termui.Fail, "Checksum mismatch")
			p.Console.Hint("expected: %s", dm.Expected)
			p.Console.Hint("actual:   %s", dm.Actual)
			p.Console.Substep(termui.Info, "The download may be corrupted; try again or download it manually")
		}
		return res, fail("download runtime", err)
	}
	if p.Source.ArchiveSHA != "" {
		p.Log.Debug().Str("sha256", p.Source.ArchiveSHA).Msg("runtime archive checksum verified")
	}

	p.Console.Substep(termui.Info, "Extracting Python...")
	files, err := extractZip(archive, p.Env.Root)
	if err != nil {
		var nz errNotZip
		if errors.As(err, &nz) {
			p.Console.Substep(termui.Fail, "Downloaded file is not a valid zip archive")
			p.Console.Substep(termui.Info, "Your network may be returning an error page instead")
		}
		return res, fail("extract runtime", err)
	}
	p.Console.Substep(termui.Done, "Python extracted")
	p.Log.Debug().Int("files", files).Str("dir", p.Env.Root).Msg("runtime extracted")

	pth, err := patchPathFile(p.Env.Root)
	if err != nil {
		p.Console.Substep(termui.Fail, "Failed to patch the ._pth file: %v", err)
		return res, fail("patch path file", err)
	}
	p.Log.Debug().Str("file", pth).Msg("path configuration patched")
	if err := writeSiteCustomize(p.Env.Root); err != nil {
		p.Console.Substep(termui.Warn, "Could not create sitecustomize.py: %v", err)
	}

	n, err = p.fetch(ctx, "Downloading pip installer", download.Task{URL: p.Source.BootstrapURL, FinalPath: bootstrap})
	res.BytesDownloaded += n
	if err != nil {
		return res, fail("download pip bootstrap", err)
	}

	p.Console.Substep(termui.Info, "Installing pip...")
	out, err := p.Runner.Run(ctx, execx.Cmd{Path: p.Env.Interpreter, Args: []string{bootstrap}, Dir: p.Root, Capture: true})
	if err != nil {
		p.Console.Substep(termui.Fail, "Failed to install pip")
		if !p.Verbose {
			for _, l := range execx.Tail(out.Stderr, 3) {
				p.Console.Hint("%s", l)
			}
		}
		return res, fail("bootstrap pip", err)
	}
	if !fsutil.PathExists(p.Env.PackageManager) {
		p.Console.Substep(termui.Fail, "pip was not created at the expected location")
		return res, fail("verify pip", fmt.Errorf("%s missing after bootstrap", p.Env.PackageManager))
	}
	p.Console.Substep(termui.Done, "pip installed")

	// setuptools still provides pkg_resources for several payload dependencies.
	p.Console.Substep(termui.Info, "Installing setuptools...")
	if _, err := p.Runner.Run(ctx, execx.Cmd{
		Path:    p.Env.Interpreter,
		Args:    []string{"-m", "pip", "install", "--no-warn-script-location", "setuptools"},
		Capture: true,
	}); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		p.Console.Substep(termui.Warn, "setuptools installation failed (pkg_resources may be unavailable)")
	} else {
		p.Console.Substep(termui.Done, "setuptools installed")
	}

	p.Console.Substep(termui.Done, "Portable Python %s environment ready", p.Source.Version)
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context, desc string, t download.Task) (int64, error) {
	p.Console.Substep(termui.Info, "%s...", desc)
	update, finish := p.Console.Progress(desc)
	var got int64
	f := *p.Fetcher
	f.OnProgress = func(done, total int64) {
		got = done
		update(done, total)
	}
	err := f.Fetch(ctx, t)
	finish()
	if err != nil {
		p.Console.Substep(termui.Fail, "Download failed: %v", err)
		p.Console.Substep(termui.Info, "You can download manually from: %s", t.URL)
		return got, err
	}
	p.Console.Substep(termui.Done, "%s complete", desc)
	return got, nil
}
