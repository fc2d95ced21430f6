// Package launcher runs the six launcher steps: check the interpreter, pick
// and provision an environment, handle reinstall or upgrade, install the
// dependencies for a hardware profile, load the server configuration, then
// launch and supervise the server until it stops.
package launcher

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"voxlaunch/internal/config"
	"voxlaunch/internal/download"
	"voxlaunch/internal/environment"
	"voxlaunch/internal/execx"
	"voxlaunch/internal/hardware"
	"voxlaunch/internal/metrics"
	"voxlaunch/internal/platform"
	"voxlaunch/internal/supervisor"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

const totalSteps = 6

// Options are the command-line choices for one run.
type Options struct {
	Root          string
	Reinstall     bool
	Upgrade       bool
	Profile       types.Profile // empty: ask, or reuse on upgrade
	ForcePortable bool
	ForceStandard bool
	Verbose       bool
}

// Launcher holds the collaborators of a run. New fills in host defaults;
// tests replace individual fields.
type Launcher struct {
	Opts     Options
	Config   config.Config
	GOOS     string
	Runner   execx.Runner
	Console  *termui.Console
	Prompter termui.Prompter
	Log      zerolog.Logger
	Metrics  *metrics.Recorder
	Fetcher  *download.Fetcher
	Prober   *platform.Prober
	Detector *hardware.Detector
	Budgets  supervisor.Budgets
	Environ  func() []string
	// Supervise runs the payload until it stops. It defaults to a real
	// supervised child process.
	Supervise func(ctx context.Context, spec supervisor.Spec, addr config.ServerAddr) error

	sup      *supervisor.Supervisor
	info     platform.Info
	existing types.Profile
}

func New(opts Options, cfg config.Config, c *termui.Console, p termui.Prompter, log zerolog.Logger, m *metrics.Recorder) *Launcher {
	runner := &execx.ExecRunner{Verbose: opts.Verbose, Out: c}
	budgets := supervisor.DefaultBudgets()
	budgets.ReadyTimeout = time.Duration(cfg.ReadyTimeoutSeconds) * time.Second
	l := &Launcher{
		Opts:     opts,
		Config:   cfg,
		GOOS:     runtime.GOOS,
		Runner:   runner,
		Console:  c,
		Prompter: p,
		Log:      log,
		Metrics:  m,
		Fetcher:  download.NewFetcher(download.DefaultTimeout),
		Prober:   &platform.Prober{Runner: runner},
		Detector: &hardware.Detector{Runner: runner},
		Budgets:  budgets,
		Environ:  os.Environ,
	}
	return l
}

func (l *Launcher) dirs() environment.Dirs {
	return environment.Dirs{Standard: l.Config.StandardDir, Portable: l.Config.PortableDir}
}

func (l *Launcher) layout(kind types.EnvKind) types.EnvironmentDescriptor {
	return environment.Layout(kind, l.Opts.Root, l.dirs(), l.GOOS)
}

// Run executes every step. The returned error maps to an exit code through
// ExitCode.
func (l *Launcher) Run(ctx context.Context) error {
	if l.Prober.GOOS == "" {
		l.Prober.GOOS = l.GOOS
	}
	if l.Detector.GOOS == "" {
		l.Detector.GOOS = l.GOOS
	}
	l.sup = supervisor.New(l.Budgets, l.Console, l.Log)
	l.Console.Banner("Chatterbox TTS Server Launcher")

	done := l.Metrics.Phase("provision")
	l.sup.Enter(supervisor.Provisioning, 0)
	env, err := l.prepare(ctx)
	done()
	if err != nil {
		return err
	}

	done = l.Metrics.Phase("install")
	err = l.ensureInstalled(ctx, env)
	done()
	if err != nil {
		return err
	}

	done = l.Metrics.Phase("serve")
	defer done()
	return l.serve(ctx, env)
}
