package launcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/config"
	"voxlaunch/internal/execx"
	"voxlaunch/internal/supervisor"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

// serve is steps 5 and 6.
func (l *Launcher) serve(ctx context.Context, env types.EnvironmentDescriptor) error {
	c := l.Console

	c.Step(5, totalSteps, "Loading configuration...")
	cfgPath := filepath.Join(l.Opts.Root, l.Config.PayloadConfig)
	addr, err := config.ReadServerAddr(cfgPath)
	if err != nil {
		l.Log.Info().Err(err).Str("path", cfgPath).Msg("using default server address")
	}
	c.Substep(termui.Done, "Server will run on %s", addr)
	if supervisor.PortInUse(addr.ProbeHost(), addr.Port) {
		c.Println("")
		c.Error("Port %d is already in use!", addr.Port)
		c.Println("")
		c.Println("Another instance may be running, or another program is using this port.")
		c.Println("")
		c.Println("Options:")
		c.Println("  1. Stop the other process using port %d", addr.Port)
		c.Println("  2. Change the port in %s", l.Config.PayloadConfig)
		return ErrPortInUse(addr)
	}

	c.Step(6, totalSteps, "Launching Chatterbox TTS Server...")
	script := filepath.Join(l.Opts.Root, l.Config.ServerScript)
	if !fsutil.PathExists(script) {
		err := fmt.Errorf("%s not found", l.Config.ServerScript)
		c.Error("%v", err)
		return ErrLaunch(err)
	}
	spec := supervisor.Spec{
		Program: env.Interpreter,
		Args:    []string{script},
		Dir:     l.Opts.Root,
		Env:     l.Environ(),
	}
	// The embeddable interpreter loads its DLLs from its own directory.
	if env.Kind == types.EnvPortable && l.GOOS == "windows" {
		spec.Env = supervisor.PrependPath(spec.Env, "PATH", env.Root, filepath.Join(env.Root, "Scripts"))
		l.Log.Debug().Str("dir", env.Root).Msg("portable interpreter added to PATH")
	}
	c.Substep(termui.Info, "Starting %s...", l.Config.ServerScript)

	supervise := l.Supervise
	if supervise == nil {
		supervise = l.supervise
	}
	return supervise(ctx, spec, addr)
}

// supervise owns the payload from launch to exit.
func (l *Launcher) supervise(ctx context.Context, spec supervisor.Spec, addr config.ServerAddr) error {
	c, sup := l.Console, l.sup
	if err := sup.Launch(spec); err != nil {
		c.Error("Failed to launch server!")
		return ErrLaunch(err)
	}
	defer sup.Shutdown()

	c.Substep(termui.Info, "Waiting for the server to accept connections (the first start downloads the model)...")
	start := time.Now()
	if err := sup.AwaitReady(ctx, addr); err != nil {
		var ee *supervisor.EarlyExitError
		switch {
		case errors.Is(err, supervisor.ErrReadinessTimeout):
			l.startFailed("The server did not become ready within the timeout period.", nil)
			return ErrReadinessTimeout(l.Budgets.ReadyTimeout)
		case errors.As(err, &ee):
			l.startFailed(fmt.Sprintf("The server exited with code %d before it was ready.", ee.Code), execx.Tail(ee.Tail, 5))
			return ErrLaunch(err)
		default:
			return err
		}
	}
	l.Metrics.ReadyWait(time.Since(start))
	l.statusBox(addr)

	code, err := sup.Monitor(ctx)
	if err != nil {
		c.Println("")
		c.Header("Shutting down Chatterbox TTS Server...")
		sup.Shutdown()
		c.Println("")
		c.Println("Server stopped. Goodbye!")
		return nil
	}
	c.Println("")
	if code != 0 {
		c.Substep(termui.Warn, "Server exited with code %d", code)
		return ErrPayloadExit(code)
	}
	c.Substep(termui.Done, "Server stopped normally")
	return nil
}

// startFailed explains a payload that never became ready. tail holds its last
// stderr lines; verbose runs already streamed them.
func (l *Launcher) startFailed(reason string, tail []string) {
	c := l.Console
	c.Println("")
	c.Error("Server failed to start!")
	c.Println("")
	c.Println("%s", reason)
	if len(tail) > 0 && !l.Opts.Verbose {
		c.Println("")
		c.Println("Last server output:")
		for _, line := range tail {
			c.Hint("%s", line)
		}
	}
	c.Println("")
	c.Println("Common causes:")
	c.Println("  - Missing CUDA drivers (for GPU installation)")
	c.Println("  - Insufficient memory (the model needs 8GB+ of VRAM)")
	c.Println("  - Network issues downloading the model")
	c.Println("  - Port conflict")
	c.Println("")
	c.Println("Check the server output above for error messages, or run with --verbose.")
}

func (l *Launcher) statusBox(addr config.ServerAddr) {
	url := fmt.Sprintf("http://%s:%d", addr.BrowseHost(), addr.Port)
	lines := []string{
		"Chatterbox TTS Server is running!",
		"",
		"Web Interface:  " + url,
		"API Docs:       " + url + "/docs",
	}
	if addr.BrowseHost() != addr.Host && addr.Host != "" {
		lines = append(lines, "", "(Also accessible on your local network)")
	}
	lines = append(lines, "", "Press Ctrl+C to stop the server.")
	l.Console.Box(lines...)
	l.Console.Hint("Tip: to reinstall or upgrade, run: voxlaunch --reinstall")
}
