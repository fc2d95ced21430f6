package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"voxlaunch/internal/execx"
	"voxlaunch/internal/termui"
)

const verifyTimeout = 60 * time.Second

// verifyScript imports the payload's critical libraries and prints one JSON
// object describing what worked.
const verifyScript = `
import json

results = {}

try:
    import torch
    cuda = torch.cuda.is_available()
    results["torch"] = {
        "ok": True,
        "version": torch.__version__,
        "cuda_available": cuda,
        "cuda_version": torch.version.cuda if cuda else None,
        "gpu_name": torch.cuda.get_device_name(0) if cuda and torch.cuda.device_count() > 0 else None,
    }
except Exception as e:
    results["torch"] = {"ok": False, "error": str(e)}

try:
    import fastapi
    results["fastapi"] = {"ok": True, "version": fastapi.__version__}
except Exception as e:
    results["fastapi"] = {"ok": False, "error": str(e)}

try:
    try:
        import chatterbox
    except ImportError:
        from chatterbox_tts import ChatterboxTTS
    results["chatterbox"] = {"ok": True}
except Exception as e:
    results["chatterbox"] = {"ok": False, "error": str(e)}

try:
    import soundfile
    import librosa
    results["audio"] = {"ok": True}
except Exception as e:
    results["audio"] = {"ok": False, "error": str(e)}

print(json.dumps(results))
`

// LibResult is one library's import outcome.
type LibResult struct {
	OK            bool    `json:"ok"`
	Version       string  `json:"version,omitempty"`
	Error         string  `json:"error,omitempty"`
	CUDAAvailable bool    `json:"cuda_available,omitempty"`
	CUDAVersion   *string `json:"cuda_version,omitempty"`
	GPUName       *string `json:"gpu_name,omitempty"`
}

// VerifyReport holds every library checked, keyed torch, fastapi, chatterbox, audio.
type VerifyReport map[string]LibResult

// Failed counts libraries that did not import.
func (r VerifyReport) Failed() int {
	n := 0
	for _, l := range r {
		if !l.OK {
			n++
		}
	}
	return n
}

// Verify imports the critical libraries inside the environment and prints a
// line for each. Every problem here is a warning; the error only reports that
// the probe itself could not run or be parsed.
func (i *Installer) Verify(ctx context.Context) (VerifyReport, error) {
	i.Console.Substep(termui.Info, "Verifying installation...")
	res, err := i.Runner.Run(ctx, execx.Cmd{
		Path:    i.Env.Interpreter,
		Args:    []string{"-c", verifyScript},
		Dir:     i.Root,
		Timeout: verifyTimeout,
		Capture: true,
	})
	if err != nil {
		i.Console.Substep(termui.Warn, "Verification did not complete: %v", err)
		for _, l := range execx.Tail(res.Stderr, 3) {
			i.Console.Hint("%s", l)
		}
		return nil, err
	}
	var rep VerifyReport
	if err := json.Unmarshal([]byte(lastLine(res.Stdout)), &rep); err != nil {
		i.Console.Substep(termui.Warn, "Could not parse verification results")
		return nil, fmt.Errorf("parse verification output: %w", err)
	}
	i.report(rep)
	return rep, nil
}

func (i *Installer) report(rep VerifyReport) {
	if t, ok := rep["torch"]; ok && t.OK {
		if t.CUDAAvailable {
			i.Console.Substep(termui.Done, "PyTorch %s with CUDA %s", t.Version, deref(t.CUDAVersion))
			i.Console.Substep(termui.Done, "GPU: %s", deref(t.GPUName))
		} else {
			i.Console.Substep(termui.Done, "PyTorch %s (CPU mode)", t.Version)
		}
	} else {
		i.Console.Substep(termui.Fail, "PyTorch: %s", errText(t))
	}
	if f, ok := rep["fastapi"]; ok && f.OK {
		i.Console.Substep(termui.Done, "FastAPI %s", f.Version)
	} else {
		i.Console.Substep(termui.Fail, "FastAPI: %s", errText(f))
	}
	if c, ok := rep["chatterbox"]; ok && c.OK {
		i.Console.Substep(termui.Done, "Chatterbox TTS")
	} else {
		i.Console.Substep(termui.Fail, "Chatterbox: %s", errText(c))
	}
	if a, ok := rep["audio"]; ok && a.OK {
		i.Console.Substep(termui.Done, "Audio libraries (soundfile, librosa)")
	} else {
		i.Console.Substep(termui.Fail, "Audio libraries: %s", errText(a))
	}
}

func errText(l LibResult) string {
	if l.Error != "" {
		return l.Error
	}
	return "unknown error"
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}

// lastLine skips anything libraries printed on import before the JSON.
func lastLine(s string) string {
	lines := execx.Tail(s, 1)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[0])
}
