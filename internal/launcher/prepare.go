package launcher

import (
	"context"
	"errors"

	"voxlaunch/internal/acquire"
	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/environment"
	"voxlaunch/internal/platform"
	"voxlaunch/internal/state"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// prepare covers steps 1 to 3 and returns the environment the run will use.
func (l *Launcher) prepare(ctx context.Context) (types.EnvironmentDescriptor, error) {
	c := l.Console

	c.Step(1, totalSteps, "Checking Python installation...")
	info, err := l.Prober.Probe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return types.EnvironmentDescriptor{}, ctx.Err()
		}
		c.Error("%v", err)
		return types.EnvironmentDescriptor{}, ErrConfig(err)
	}
	l.info = info
	c.Substep(termui.Done, "Python %s detected", info.Version)

	kind, err := l.chooseKind(ctx)
	if err != nil {
		return types.EnvironmentDescriptor{}, err
	}
	// A reinstall provisions after the old trees are gone.
	if kind == types.EnvPortable && !l.Opts.Reinstall {
		if kind, err = l.provisionPortable(ctx); err != nil {
			return types.EnvironmentDescriptor{}, err
		}
	}

	c.Step(2, totalSteps, "Setting up environment...")
	env := l.layout(kind)
	c.Substep(termui.Info, "Project directory: %s", l.Opts.Root)
	if kind == types.EnvPortable {
		c.Substep(termui.Info, "Python environment: %s (portable)", env.Root)
	} else {
		c.Substep(termui.Info, "Virtual environment: %s", env.Root)
	}

	switch {
	case l.Opts.Reinstall:
		return l.reinstall(ctx, kind)
	case l.Opts.Upgrade:
		c.Step(3, totalSteps, "Preparing upgrade...")
		store := state.Store{Dir: env.Root}
		st, err := store.Load()
		if err != nil {
			l.Log.Warn().Err(err).Msg("read install state")
		}
		if st.Installed {
			l.existing = st.Profile
			c.Substep(termui.Info, "Current installation: %s", st.Profile.DisplayName())
			c.Substep(termui.Info, "Upgrading will reinstall dependencies with the same hardware selection")
			if err := store.ClearCompletion(); err != nil {
				c.Error("Could not reset the installation marker: %v", err)
				return env, ErrInstall(err)
			}
		} else {
			c.Substep(termui.Warn, "No existing installation found, will perform fresh install")
		}
	default:
		c.Step(3, totalSteps, "Checking existing installation...")
		st, err := state.Store{Dir: env.Root}.Load()
		if err != nil {
			l.Log.Warn().Err(err).Msg("read install state")
		}
		if !st.Installed {
			c.Substep(termui.Info, "No existing installation found")
			break
		}
		c.Substep(termui.Done, "Found existing %s installation", st.Profile.DisplayName())
		if l.GOOS == "windows" && kind == types.EnvStandard && info.Version.AtLeast(platform.CompatBoundary) {
			c.Println("")
			c.Warning("   Note: You're running Python %d.%d on Windows.", info.Version.Major, info.Version.Minor)
			c.Warning("   If you experience CUDA or dependency issues, your Python")
			c.Warning("   version may be the cause. Consider reinstalling with")
			c.Warning("   portable mode:  voxlaunch --reinstall --portable")
		}
	}
	return env, nil
}

// chooseKind consults the resolver and asks the operator when it says so.
func (l *Launcher) chooseKind(ctx context.Context) (types.EnvKind, error) {
	c := l.Console
	in := environment.Inputs{
		OS:               l.GOOS,
		Version:          l.info.Version,
		ForcePortable:    l.Opts.ForcePortable,
		ForceStandard:    l.Opts.ForceStandard,
		Upgrade:          l.Opts.Upgrade,
		Reinstall:        l.Opts.Reinstall,
		SimulatePortable: l.Config.SimulatePortable,
	}
	// Only probe the portable interpreter where it can exist.
	if platform.SupportsPortable(l.GOOS) {
		in.PortableFunctional = environment.Functional(ctx, l.Runner, l.layout(types.EnvPortable))
	}
	d := environment.Resolve(in)
	l.Log.Debug().Str("rule", d.Rule).Str("kind", string(d.Kind)).Msg("environment resolved")
	if d.Err != nil {
		c.Error("%v", d.Err)
		return "", ErrConfig(d.Err)
	}
	for _, w := range d.Warnings {
		c.Substep(termui.Warn, "%s", w)
	}

	switch d.Rule {
	case "upgrade-keeps-kind", "reuse-portable":
		if d.Kind == types.EnvPortable {
			c.Substep(termui.Done, "Using existing portable Python %s", l.Config.RuntimeVersion)
		}
	case "force-portable":
		c.Substep(termui.Info, "Portable mode selected via --portable")
	case "simulated-portable":
		c.Box("TEST MODE: simulating Python 3.11+", "Forcing the portable Python environment")
	}

	if d.Prompt == environment.NoPrompt {
		return d.Kind, nil
	}
	heading, options := environment.PromptText(d.Prompt, l.info.Version)
	c.Banner("Python Environment")
	for _, h := range heading {
		c.Println("   %s", h)
	}
	c.Println("")
	n, err := termui.Choose(ctx, l.Prompter, c, options, 1)
	if err != nil {
		return "", err
	}
	if n == 1 {
		return types.EnvPortable, nil
	}
	return types.EnvStandard, nil
}

// provisionPortable runs the acquisition pipeline. Any step failure falls back
// to a standard environment; only an interrupt is returned as an error.
func (l *Launcher) provisionPortable(ctx context.Context) (types.EnvKind, error) {
	c := l.Console
	c.Println("")
	p := &acquire.Pipeline{
		Root: l.Opts.Root,
		Env:  l.layout(types.EnvPortable),
		Source: acquire.Source{
			Version:      l.Config.RuntimeVersion,
			ArchiveURL:   l.Config.RuntimeURL,
			ArchiveSHA:   l.Config.RuntimeSHA256,
			BootstrapURL: l.Config.BootstrapURL,
		},
		Fetcher: l.Fetcher,
		Runner:  l.Runner,
		Console: c,
		Log:     l.Log,
		Verbose: l.Opts.Verbose,
	}
	res, err := p.Ensure(ctx)
	l.Metrics.AddDownloadBytes(res.BytesDownloaded)
	if err == nil {
		return types.EnvPortable, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	var se *acquire.StepError
	if errors.As(err, &se) {
		l.Log.Warn().Str("step", se.Step).Err(se.Err).Msg("portable setup failed")
	}
	c.Println("")
	c.Error("Could not set up portable Python environment. Falling back to system Python.")
	if l.info.Version.AtLeast(platform.CompatBoundary) {
		c.Substep(termui.Warn, "You may need Visual C++ Build Tools for a successful install")
	}
	return types.EnvStandard, nil
}

// reinstall removes both environment trees, then provisions kind again.
func (l *Launcher) reinstall(ctx context.Context, kind types.EnvKind) (types.EnvironmentDescriptor, error) {
	c := l.Console
	c.Step(3, totalSteps, "Preparing fresh reinstall...")
	for _, k := range []types.EnvKind{types.EnvStandard, types.EnvPortable} {
		dir := l.layout(k).Root
		if !fsutil.PathExists(dir) {
			continue
		}
		c.Substep(termui.Info, "Removing %s...", dir)
		res, err := fsutil.RemoveTree(dir, fsutil.RemoveOptions{})
		if err != nil {
			c.Error("Could not remove %s", dir)
			c.Substep(termui.Info, "Please delete it manually and try again:")
			c.Hint("%s", removeCommand(l.GOOS, dir))
			return types.EnvironmentDescriptor{}, ErrInstall(err)
		}
		if res.MovedTo != "" {
			c.Substep(termui.Warn, "Some files were locked; moved to %s (delete it later)", res.MovedTo)
		} else {
			c.Substep(termui.Done, "Removed %s", dir)
		}
	}
	if kind == types.EnvPortable {
		var err error
		if kind, err = l.provisionPortable(ctx); err != nil {
			return types.EnvironmentDescriptor{}, err
		}
	}
	c.Substep(termui.Done, "Ready for fresh installation")
	return l.layout(kind), nil
}

func removeCommand(goos, dir string) string {
	if goos == "windows" {
		return `rmdir /s /q "` + dir + `"`
	}
	return `rm -rf "` + dir + `"`
}
