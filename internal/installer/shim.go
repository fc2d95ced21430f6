package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/internal/environment"
	"voxlaunch/internal/termui"
)

// Shim adapts an installed payload package that cannot be changed upstream.
// Apply must be idempotent.
type Shim interface {
	Name() string
	Apply(pkgDir string) (patched []string, err error)
}

// Shims are applied after every successful install.
var Shims = []Shim{watermarkerShim{}}

// payloadPackages are the import names the TTS engine has shipped under.
var payloadPackages = []string{"chatterbox", "chatterbox_tts"}

// ApplyShims locates the payload package in site-packages and runs every shim.
// Problems are reported as warnings; a missing package is not an error.
func (i *Installer) ApplyShims() int {
	sp, ok := environment.SitePackages(i.Env)
	if !ok {
		i.Console.Substep(termui.Warn, "Could not locate site-packages, skipping compatibility patches")
		return 0
	}
	var pkgDir string
	for _, name := range payloadPackages {
		if st, err := os.Stat(filepath.Join(sp, name)); err == nil && st.IsDir() {
			pkgDir = filepath.Join(sp, name)
			break
		}
	}
	if pkgDir == "" {
		if i.Verbose {
			i.Console.Substep(termui.Info, "Chatterbox package not found, skipping compatibility patches")
		}
		return 0
	}
	total := 0
	for _, s := range Shims {
		patched, err := s.Apply(pkgDir)
		for _, f := range patched {
			i.Console.Substep(termui.Done, "%s: %s", f, s.Name())
		}
		if err != nil {
			i.Console.Substep(termui.Warn, "%s: %v", s.Name(), err)
		}
		total += len(patched)
	}
	if total > 0 {
		i.Console.Substep(termui.Done, "Patched %d file(s) for optional watermarking", total)
	} else if i.Verbose {
		i.Console.Substep(termui.Info, "No files needed patching")
	}
	return total
}

const (
	watermarkSentinel = "# [patched by voxlaunch: watermarker made optional]"
	watermarkTarget   = "self.watermarker = perth.PerthImplicitWatermarker()"
)

var watermarkFiles = []string{"tts.py", "tts_turbo.py", "mtl_tts.py", "vc.py"}

// watermarkerShim lets the engine run when the perth watermarker cannot load by
// substituting an object whose apply_watermark returns the audio unchanged.
type watermarkerShim struct{}

func (watermarkerShim) Name() string { return "watermarker made optional" }

func (watermarkerShim) Apply(pkgDir string) ([]string, error) {
	var patched []string
	var errs []string
	for _, name := range watermarkFiles {
		path := filepath.Join(pkgDir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		out, ok := PatchWatermarker(string(b))
		if !ok {
			continue
		}
		if err := fsutil.WriteFileAtomic(path, []byte(out), 0o644); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		patched = append(patched, name)
	}
	if len(errs) > 0 {
		return patched, fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return patched, nil
}

// PatchWatermarker wraps the watermarker construction in a try/except that falls
// back to a pass-through object. It returns false when the source is already
// patched or has no construction line.
func PatchWatermarker(src string) (string, bool) {
	if strings.Contains(src, watermarkSentinel) || !strings.Contains(src, watermarkTarget) {
		return src, false
	}
	warn := `print("Warning: Perth watermarker unavailable, audio will not be watermarked")`
	if strings.Contains(src, "import logging") || strings.Contains(src, "getLogger") {
		warn = `logger.warning("Perth watermarker unavailable, audio will not be watermarked")`
	}
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines)+9)
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if !strings.Contains(line, watermarkTarget) || !strings.HasPrefix(trimmed, "self.") {
			out = append(out, line)
			continue
		}
		ind := line[:len(line)-len(trimmed)]
		out = append(out,
			ind+watermarkSentinel,
			ind+"try:",
			ind+"    "+watermarkTarget,
			ind+"except Exception:",
			ind+"    class _NoOpWatermarker:",
			ind+"        def apply_watermark(self, wav, *args, **kwargs):",
			ind+"            return wav",
			ind+"    self.watermarker = _NoOpWatermarker()",
			ind+"    "+warn,
		)
	}
	return strings.Join(out, "\n"), true
}
