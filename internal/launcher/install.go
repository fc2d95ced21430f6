package launcher

import (
	"context"
	"errors"
	"path/filepath"

	"voxlaunch/internal/environment"
	"voxlaunch/internal/hardware"
	"voxlaunch/internal/installer"
	"voxlaunch/internal/state"
	"voxlaunch/internal/supervisor"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// ensureInstalled is step 4. Markers are only written after a successful
// install, so an interrupted run installs again next time.
func (l *Launcher) ensureInstalled(ctx context.Context, env types.EnvironmentDescriptor) error {
	c := l.Console
	store := state.Store{Dir: env.Root}
	st, err := store.Load()
	if err != nil {
		l.Log.Warn().Err(err).Msg("read install state")
	}
	if st.Installed {
		c.Step(4, totalSteps, "Using existing installation...")
		c.Substep(termui.Done, "Installation type: %s", st.Profile.DisplayName())
		l.Metrics.Selected(st.Profile, env.Kind)
		return nil
	}

	l.sup.Enter(supervisor.Installing, 0)
	c.Step(4, totalSteps, "Installing Chatterbox TTS Server...")
	if !environment.Exists(env) {
		if err := l.createEnvironment(ctx, env); err != nil {
			return err
		}
	}

	prof, err := l.selectProfile(ctx)
	if err != nil {
		return err
	}
	l.Metrics.Selected(prof, env.Kind)

	in := &installer.Installer{
		Root:          l.Opts.Root,
		Env:           env,
		Runner:        l.Runner,
		Console:       c,
		Log:           l.Log,
		Verbose:       l.Opts.Verbose,
		Manifests:     l.Config.Manifest,
		Supplementary: l.Config.SupplementaryPackage,
	}
	c.Println("")
	if err := in.UpgradePackageManager(ctx); err != nil {
		return err
	}
	c.Println("")
	if err := in.Install(ctx, prof); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.installFailed(err)
		return ErrInstall(err)
	}

	c.Println("")
	c.Substep(termui.Info, "Applying post-install patches...")
	in.ApplyShims()

	c.Println("")
	rep, err := in.Verify(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	failed := rep.Failed()
	if err != nil && failed == 0 {
		failed = 1
	}
	l.Metrics.VerificationFailures(failed)
	if failed > 0 {
		c.Println("")
		c.Warning("Installation verification had some issues.")
		c.Warning("The server may still work. Attempting to continue...")
	}

	if err := store.Save(prof); err != nil {
		c.Error("Could not record the installation: %v", err)
		return ErrInstall(err)
	}
	c.Println("")
	c.Success("Installation complete!")
	return nil
}

func (l *Launcher) createEnvironment(ctx context.Context, env types.EnvironmentDescriptor) error {
	c := l.Console
	if env.Kind == types.EnvPortable {
		kind, err := l.provisionPortable(ctx)
		if err != nil {
			return err
		}
		if kind != types.EnvPortable {
			err := errors.New("portable Python environment could not be set up")
			c.Error("Failed to set up the portable Python environment!")
			c.Substep(termui.Info, "Try again, or run with --no-portable to use system Python.")
			return ErrInstall(err)
		}
		return nil
	}
	c.Substep(termui.Info, "Creating virtual environment...")
	if err := environment.CreateStandard(ctx, l.Runner, l.info.Interpreter, env); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Error("Failed to create virtual environment!")
		c.Println("")
		c.Println("Try creating it manually:")
		c.Println("  %s -m venv %s", l.info.Interpreter[0], filepath.Base(env.Root))
		return ErrInstall(err)
	}
	c.Substep(termui.Done, "Virtual environment created")
	return nil
}

// selectProfile applies flag, then the profile kept from an upgrade, then the
// interactive menu.
func (l *Launcher) selectProfile(ctx context.Context) (types.Profile, error) {
	c := l.Console
	prof := l.Opts.Profile
	if prof == "" && l.existing != "" {
		prof = l.existing
		c.Substep(termui.Info, "Using existing hardware selection: %s", prof.DisplayName())
	}
	if prof == "" {
		c.Println("")
		c.Substep(termui.Info, "Detecting available hardware...")
		report := l.Detector.Detect(ctx)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		hw := report.Primary()
		l.Log.Info().Str("accelerator", string(hw.Accelerator)).Str("device", hw.DeviceName).
			Bool("nvidia", report.NVIDIA.Found).Bool("amd", report.AMD.Found).Msg("hardware detected")
		var err error
		prof, err = hardware.Menu(ctx, l.Prompter, c, report, hardware.DefaultProfile(report, l.GOOS), l.GOOS)
		if err != nil {
			return "", err
		}
	}
	c.Println("")
	c.Substep(termui.Done, "Selected: %s", prof.DisplayName())

	ok, err := hardware.ConfirmUnsupported(ctx, l.Prompter, c, prof, l.GOOS)
	if err != nil {
		return "", err
	}
	if !ok {
		c.Println("")
		c.Println("   Installation cancelled.")
		c.Println("   Tip: Use --nvidia for NVIDIA GPUs or --cpu for CPU-only.")
		return "", ErrAborted("installation cancelled")
	}
	return prof, nil
}

func (l *Launcher) installFailed(err error) {
	c := l.Console
	c.Println("")
	c.Error("Installation failed!")
	var f *installer.Failure
	if errors.As(err, &f) && len(f.Tail) > 0 && !l.Opts.Verbose {
		for _, line := range f.Tail {
			c.Hint("%s", line)
		}
	}
	c.Println("")
	c.Println("Troubleshooting tips:")
	c.Println("  1. Check your internet connection")
	c.Println("  2. Try running with --verbose for more details:")
	c.Println("     voxlaunch --reinstall --verbose")
	c.Println("  3. Check if you have enough disk space")
	if f != nil && len(f.Commands) > 0 {
		c.Println("  4. Try installing manually:")
		for _, cmd := range f.Commands {
			c.Println("     %s", cmd)
		}
	}
}
