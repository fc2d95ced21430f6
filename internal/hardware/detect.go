// Package hardware detects GPU accelerators through their vendor diagnostic
// tools and maps the result to an install profile.
package hardware

import (
	"context"
	"strings"
	"time"

	"voxlaunch/internal/execx"
	"voxlaunch/pkg/types"
)

// detectTimeout bounds each diagnostic tool invocation.
const detectTimeout = 10 * time.Second

const unknownAMD = "AMD GPU (unknown model)"

// Detection is the outcome of one vendor probe.
type Detection struct {
	Found bool
	Name  string
}

// Report holds both vendor probes.
type Report struct {
	NVIDIA Detection
	AMD    Detection
}

// Primary returns the accelerator a default profile would target.
func (r Report) Primary() types.HardwareProfile {
	switch {
	case r.NVIDIA.Found:
		return types.HardwareProfile{Accelerator: types.AcceleratorNVIDIA, DeviceName: r.NVIDIA.Name}
	case r.AMD.Found:
		return types.HardwareProfile{Accelerator: types.AcceleratorAMD, DeviceName: r.AMD.Name}
	}
	return types.HardwareProfile{Accelerator: types.AcceleratorNone}
}

// Detector runs the vendor tools.
type Detector struct {
	Runner  execx.Runner
	GOOS    string
	Timeout time.Duration
}

func (d *Detector) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return detectTimeout
}

// Detect probes both vendors. Missing tools, timeouts and failures all read as
// "not detected".
func (d *Detector) Detect(ctx context.Context) Report {
	return Report{NVIDIA: d.nvidia(ctx), AMD: d.amd(ctx)}
}

func nvidiaSmiPaths(goos string) []string {
	if goos == "windows" {
		return []string{
			"nvidia-smi",
			`C:\Windows\System32\nvidia-smi.exe`,
			`C:\Program Files\NVIDIA Corporation\NVSMI\nvidia-smi.exe`,
		}
	}
	return []string{"nvidia-smi"}
}

func (d *Detector) nvidia(ctx context.Context) Detection {
	for _, p := range nvidiaSmiPaths(d.GOOS) {
		res, err := d.Runner.Run(ctx, execx.Cmd{
			Path:    p,
			Args:    []string{"--query-gpu=name", "--format=csv,noheader,nounits"},
			Timeout: d.timeout(),
			Capture: true,
		})
		if err != nil {
			if execx.IsNotFound(err) {
				continue
			}
			return Detection{}
		}
		return ParseNvidiaSmi(res.Stdout)
	}
	return Detection{}
}

func (d *Detector) amd(ctx context.Context) Detection {
	res, err := d.Runner.Run(ctx, execx.Cmd{
		Path:    "rocm-smi",
		Args:    []string{"--showproductname"},
		Timeout: d.timeout(),
		Capture: true,
	})
	if err != nil {
		return Detection{}
	}
	return ParseRocmSmi(res.Stdout)
}

// ParseNvidiaSmi takes the first GPU name from nvidia-smi CSV output.
func ParseNvidiaSmi(out string) Detection {
	out = strings.TrimSpace(out)
	if out == "" {
		return Detection{}
	}
	name, _, _ := strings.Cut(out, "\n")
	return Detection{Found: true, Name: strings.TrimSpace(name)}
}

// ParseRocmSmi finds the product name in rocm-smi output. Any non-empty output
// counts as a detection even when no name can be extracted.
func ParseRocmSmi(out string) Detection {
	out = strings.TrimSpace(out)
	if out == "" {
		return Detection{}
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Card series") && !strings.Contains(line, "GPU") {
			continue
		}
		// "GPU[0]  : Card series:  Radeon RX 7900 XTX" nests the label, so
		// the name is the last segment.
		parts := strings.Split(line, ":")
		if len(parts) > 1 {
			if name := strings.TrimSpace(parts[len(parts)-1]); name != "" {
				return Detection{Found: true, Name: name}
			}
		}
	}
	return Detection{Found: true, Name: unknownAMD}
}

// DefaultProfile picks nvidia for any NVIDIA GPU, rocm for AMD on Linux, and
// cpu otherwise.
func DefaultProfile(r Report, goos string) types.Profile {
	switch {
	case r.NVIDIA.Found:
		return types.ProfileNVIDIA
	case r.AMD.Found && goos == "linux":
		return types.ProfileROCm
	}
	return types.ProfileCPU
}
