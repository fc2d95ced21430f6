package hardware

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxlaunch/internal/execx"
	"voxlaunch/internal/execx/exectest"
	"voxlaunch/internal/termui"
	"voxlaunch/pkg/types"
)

func TestParseNvidiaSmi(t *testing.T) {
	d := ParseNvidiaSmi("NVIDIA GeForce RTX 4090\nNVIDIA GeForce RTX 3060\n")
	assert.Equal(t, Detection{Found: true, Name: "NVIDIA GeForce RTX 4090"}, d)
	assert.False(t, ParseNvidiaSmi("  \n").Found)
}

func TestParseRocmSmi(t *testing.T) {
	out := `
============================ ROCm System Management Interface ============================
GPU[0]		: Card series: 		Radeon RX 7900 XTX
`
	d := ParseRocmSmi(out)
	require.True(t, d.Found)
	assert.Equal(t, "Radeon RX 7900 XTX", d.Name)

	d = ParseRocmSmi("Card series:  Navi 31 [Radeon RX 7900 XT]\n")
	assert.Equal(t, "Navi 31 [Radeon RX 7900 XT]", d.Name)

	d = ParseRocmSmi("something unrelated\n")
	assert.Equal(t, Detection{Found: true, Name: unknownAMD}, d)
}

func TestDetect_ToolsMissingMeansNotDetected(t *testing.T) {
	r := &exectest.Runner{Fallback: &exectest.Response{Err: exec.ErrNotFound}}
	rep := (&Detector{Runner: r, GOOS: "windows"}).Detect(context.Background())
	assert.False(t, rep.NVIDIA.Found)
	assert.False(t, rep.AMD.Found)
	assert.Equal(t, 3, r.Called("nvidia-smi"), "every known nvidia-smi location is tried")
	assert.Equal(t, types.AcceleratorNone, rep.Primary().Accelerator)
}

func TestDetect_TimeoutMeansNotDetected(t *testing.T) {
	r := (&exectest.Runner{}).
		On("nvidia-smi", exectest.Response{Err: execx.ErrTimeout}).
		On("rocm-smi", exectest.Response{Result: execx.Result{Stdout: "Card series: Radeon VII\n"}})
	rep := (&Detector{Runner: r, GOOS: "linux"}).Detect(context.Background())
	assert.False(t, rep.NVIDIA.Found)
	assert.True(t, rep.AMD.Found)
	assert.Equal(t, types.HardwareProfile{Accelerator: types.AcceleratorAMD, DeviceName: "Radeon VII"}, rep.Primary())
	for _, c := range r.Calls {
		assert.Equal(t, detectTimeout, c.Timeout)
	}
}

func TestDefaultProfile(t *testing.T) {
	nv := Report{NVIDIA: Detection{Found: true}, AMD: Detection{Found: true}}
	amd := Report{AMD: Detection{Found: true}}
	assert.Equal(t, types.ProfileNVIDIA, DefaultProfile(nv, "windows"))
	assert.Equal(t, types.ProfileROCm, DefaultProfile(amd, "linux"))
	assert.Equal(t, types.ProfileCPU, DefaultProfile(amd, "windows"))
	assert.Equal(t, types.ProfileCPU, DefaultProfile(Report{}, "linux"))
}

func TestMenu(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	c := termui.New(&out)
	rep := Report{NVIDIA: Detection{Found: true, Name: "RTX 5090"}}

	prof, err := Menu(ctx, termui.NewLinePrompter(strings.NewReader("\n"), &out), c, rep, types.ProfileNVIDIA, "linux")
	require.NoError(t, err)
	assert.Equal(t, types.ProfileNVIDIA, prof)
	assert.Contains(t, out.String(), "NVIDIA GPU: Detected (RTX 5090)")
	assert.Contains(t, out.String(), "AMD GPU:    Not detected")
	assert.NotContains(t, out.String(), ": :")

	prof, err = Menu(ctx, termui.NewLinePrompter(strings.NewReader("7\n3\n"), &out), c, rep, types.ProfileNVIDIA, "linux")
	require.NoError(t, err)
	assert.Equal(t, types.ProfileNVIDIACU128, prof)

	_, err = Menu(ctx, termui.NewLinePrompter(strings.NewReader(""), &out), c, rep, types.ProfileCPU, "linux")
	assert.ErrorIs(t, err, termui.ErrAborted)
}

func TestConfirmUnsupported(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	c := termui.New(&out)
	ok, err := ConfirmUnsupported(ctx, termui.NewLinePrompter(strings.NewReader(""), &out), c, types.ProfileROCm, "linux")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ConfirmUnsupported(ctx, termui.NewLinePrompter(strings.NewReader("\n"), &out), c, types.ProfileROCm, "windows")
	require.NoError(t, err)
	assert.False(t, ok)
}
