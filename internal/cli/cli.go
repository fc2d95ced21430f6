// Package cli parses the launcher command line and maps the outcome of a run
// onto a process exit code.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/config"
	"voxlaunch/internal/launcher"
	"voxlaunch/internal/logging"
	"voxlaunch/internal/metrics"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Config is the parsed command line.
type Config struct {
	Root        string
	LogLevel    string
	MetricsFile string
	Verbose     bool
	Reinstall   bool
	Upgrade     bool
	CPU         bool
	NVIDIA      bool
	NVIDIACU128 bool
	ROCm        bool
	Portable    bool
	NoPortable  bool
}

// Profile returns the profile chosen by flag, or "" to ask.
func (c *Config) Profile() types.Profile {
	switch {
	case c.CPU:
		return types.ProfileCPU
	case c.NVIDIA:
		return types.ProfileNVIDIA
	case c.NVIDIACU128:
		return types.ProfileNVIDIACU128
	case c.ROCm:
		return types.ProfileROCm
	}
	return ""
}

// Options converts the flags for the launcher. Both mode flags are passed
// through; the environment resolver rejects the combination.
func (c *Config) Options(root string) launcher.Options {
	return launcher.Options{
		Root:          root,
		Reinstall:     c.Reinstall,
		Upgrade:       c.Upgrade,
		Profile:       c.Profile(),
		ForcePortable: c.Portable,
		ForceStandard: c.NoPortable,
		Verbose:       c.Verbose,
	}
}

// Stubbable for tests.
var (
	fnRun        = runLauncher
	fnExecutable = os.Executable
)

// resolveRoot returns the absolute project directory.
func resolveRoot(flag string) (string, error) {
	if flag != "" {
		dir, err := fsutil.ExpandHome(flag)
		if err != nil {
			return "", err
		}
		return filepath.Abs(dir)
	}
	exe, err := fnExecutable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func runLauncher(ctx context.Context, cfg *Config) error {
	root, err := resolveRoot(cfg.Root)
	if err != nil {
		return launcher.ErrConfig(err)
	}
	env, err := config.LoadEnv(root)
	if err != nil {
		return launcher.ErrConfig(err)
	}
	log, runID := logging.New(logging.Options{
		Level:   logging.LevelFromEnv(cfg.LogLevel, func(k string) string { return env.Str(k, "") }),
		Verbose: cfg.Verbose,
	})
	settings, path, err := config.LoadProject(root, env)
	if err != nil {
		return launcher.ErrConfig(err)
	}
	log.Debug().Str("root", root).Str("settings", path).Msg("configuration loaded")

	m := metrics.New(runID)
	console := termui.New(os.Stdout)
	prompter := termui.NewPrompter(os.Stdin, os.Stdout)
	l := launcher.New(cfg.Options(root), settings, console, prompter, log, m)

	runErr := l.Run(ctx)
	m.ExitCode(launcher.ExitCode(runErr))
	if cfg.MetricsFile != "" {
		path, err := fsutil.ExpandHome(cfg.MetricsFile)
		if err == nil {
			err = m.WriteFile(path)
		}
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("write metrics")
		}
	}
	if runErr != nil {
		log.Debug().Err(runErr).Msg("run finished with error")
	}
	return runErr
}

// MainWithArgs runs the launcher and returns its exit code: 0 after a clean
// stop, 1 on failure, 2 when the operator aborted.
func MainWithArgs(args []string) int {
	cfg := &Config{}
	root := buildRootCmdWith(cfg)
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// After the first interrupt the default handlers come back, so a second
	// Ctrl+C ends the process even while a prompt is blocking.
	go func() {
		<-ctx.Done()
		stop()
	}()

	err := root.ExecuteContext(ctx)
	code := launcher.ExitCode(err)
	switch {
	case err == nil:
	case code == launcher.ExitAborted:
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Interrupted by user.")
	default:
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		if !cfg.Verbose {
			fmt.Fprintln(os.Stderr, "Run with --verbose for more details.")
		}
	}
	return code
}

// Main returns an exit code for use by cmd/voxlaunch.
func Main() int { return MainWithArgs(os.Args[1:]) }
