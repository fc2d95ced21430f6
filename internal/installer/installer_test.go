package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxlaunch/internal/config"
	"voxlaunch/internal/environment"
	"voxlaunch/internal/execx"
	"voxlaunch/internal/execx/exectest"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

func newInstaller(t *testing.T, r *exectest.Runner) (*Installer, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	out := &bytes.Buffer{}
	cfg := config.Defaults()
	return &Installer{
		Root:          root,
		Env:           environment.Standard(root, environment.Dirs{}, "linux"),
		Runner:        r,
		Console:       termui.New(out),
		Log:           zerolog.Nop(),
		Manifests:     cfg.Manifest,
		Supplementary: cfg.SupplementaryPackage,
	}, out
}

func writeManifest(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("fastapi\n"), 0o644))
}

func TestInstall_CPU(t *testing.T) {
	r := &exectest.Runner{}
	in, _ := newInstaller(t, r)
	writeManifest(t, in.Root, "requirements.txt")

	require.NoError(t, in.Install(context.Background(), types.ProfileCPU))
	require.Len(t, r.Calls, 1)
	c := r.Calls[0]
	assert.Equal(t, in.Env.PackageManager, c.Path)
	assert.Equal(t, []string{"install", "--no-warn-script-location", "-r", filepath.Join(in.Root, "requirements.txt")}, c.Args)
	assert.True(t, c.Capture)
}

func TestInstall_CU128AddsSupplementary(t *testing.T) {
	r := &exectest.Runner{}
	in, _ := newInstaller(t, r)
	writeManifest(t, in.Root, "requirements-nvidia-cu128.txt")

	require.NoError(t, in.Install(context.Background(), types.ProfileNVIDIACU128))
	require.Len(t, r.Calls, 2)
	assert.Equal(t, []string{"install", "--no-deps", config.DefaultSupplementaryPackage}, r.Calls[1].Args)
}

func TestInstall_FailureCarriesTailAndCommands(t *testing.T) {
	stderr := "l1\nl2\nl3\nl4\nl5\nl6\nERROR: No matching distribution found for torch==2.5.1\n"
	r := (&exectest.Runner{}).On("-r", exectest.Response{
		Result: execx.Result{ExitCode: 1, Stderr: stderr},
		Err:    &execx.ExitError{Cmd: "pip install", Code: 1, Stderr: stderr},
	})
	in, out := newInstaller(t, r)
	writeManifest(t, in.Root, "requirements-rocm.txt")

	err := in.Install(context.Background(), types.ProfileROCm)
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, []string{"l3", "l4", "l5", "l6", "ERROR: No matching distribution found for torch==2.5.1"}, f.Tail)
	require.Len(t, f.Commands, 1)
	assert.Contains(t, f.Commands[0], "install -r requirements-rocm.txt")
	assert.Contains(t, out.String(), "exit code 1")
}

func TestInstall_MissingManifest(t *testing.T) {
	r := &exectest.Runner{}
	in, _ := newInstaller(t, r)
	err := in.Install(context.Background(), types.ProfileNVIDIA)
	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, "read manifest", f.Step)
	assert.Empty(t, r.Calls)
}

func TestUpgradePackageManager_FailureIsWarning(t *testing.T) {
	r := (&exectest.Runner{}).On("--upgrade pip", exectest.Response{Err: &execx.ExitError{Code: 1}})
	in, out := newInstaller(t, r)
	require.NoError(t, in.UpgradePackageManager(context.Background()))
	assert.Contains(t, out.String(), "pip upgrade failed")
}

const engineSource = `import logging
import perth

logger = logging.getLogger(__name__)

class ChatterboxTTS:
    def __init__(self, t3, s3gen):
        self.t3 = t3
        self.watermarker = perth.PerthImplicitWatermarker()
`

func TestPatchWatermarker(t *testing.T) {
	out, ok := PatchWatermarker(engineSource)
	require.True(t, ok)
	assert.Contains(t, out, "        "+watermarkSentinel+"\n        try:\n")
	assert.Contains(t, out, "def apply_watermark(self, wav, *args, **kwargs):")
	assert.Contains(t, out, "logger.warning(")
	assert.Equal(t, 1, strings.Count(out, watermarkSentinel))

	again, ok := PatchWatermarker(out)
	assert.False(t, ok)
	assert.Equal(t, out, again)

	noLog := strings.Replace(strings.Replace(engineSource, "import logging\n", "", 1), "logger = logging.getLogger(__name__)\n", "", 1)
	out, ok = PatchWatermarker(noLog)
	require.True(t, ok)
	assert.Contains(t, out, `print("Warning: Perth watermarker unavailable`)

	_, ok = PatchWatermarker("class VC:\n    pass\n")
	assert.False(t, ok)
}

func TestApplyShims(t *testing.T) {
	in, _ := newInstaller(t, &exectest.Runner{})
	pkg := filepath.Join(in.Env.Root, "lib", "python3.10", "site-packages", "chatterbox_tts")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "tts.py"), []byte(engineSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "vc.py"), []byte(engineSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "mtl_tts.py"), []byte("x = 1\n"), 0o644))

	assert.Equal(t, 2, in.ApplyShims())
	assert.Equal(t, 0, in.ApplyShims(), "second pass finds everything patched")
	b, err := os.ReadFile(filepath.Join(pkg, "tts.py"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "_NoOpWatermarker")
}

func TestApplyShims_NoSitePackages(t *testing.T) {
	in, out := newInstaller(t, &exectest.Runner{})
	assert.Equal(t, 0, in.ApplyShims())
	assert.Contains(t, out.String(), "Could not locate site-packages")
}

func TestVerify(t *testing.T) {
	json := `some import noise
{"torch": {"ok": true, "version": "2.5.1+cu121", "cuda_available": true, "cuda_version": "12.1", "gpu_name": "RTX 4090"}, "fastapi": {"ok": true, "version": "0.115.0"}, "chatterbox": {"ok": false, "error": "No module named 'chatterbox'"}, "audio": {"ok": true}}
`
	r := (&exectest.Runner{}).On("-c", exectest.Response{Result: execx.Result{Stdout: json}})
	in, out := newInstaller(t, r)
	rep, err := in.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed())
	assert.Contains(t, out.String(), "PyTorch 2.5.1+cu121 with CUDA 12.1")
	assert.Contains(t, out.String(), "GPU: RTX 4090")
	assert.Contains(t, out.String(), "Chatterbox: No module named 'chatterbox'")
	assert.Equal(t, verifyTimeout, r.Calls[0].Timeout)
}

func TestVerify_Unparseable(t *testing.T) {
	r := (&exectest.Runner{}).On("-c", exectest.Response{Result: execx.Result{Stdout: "Segmentation fault"}})
	in, out := newInstaller(t, r)
	_, err := in.Verify(context.Background())
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Could not parse")
}
