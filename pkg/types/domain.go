package types

import (
	"fmt"
	"strings"
	"time"
)

// Profile selects the dependency manifest matching the host accelerator.
type Profile string

const (
	ProfileCPU         Profile = "cpu"
	ProfileNVIDIA      Profile = "nvidia"
	ProfileNVIDIACU128 Profile = "nvidia-cu128"
	ProfileROCm        Profile = "rocm"
)

// Profiles lists every profile in menu order.
var Profiles = []Profile{ProfileCPU, ProfileNVIDIA, ProfileNVIDIACU128, ProfileROCm}

// ParseProfile accepts a persisted or user-supplied profile token.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p.Valid() {
		return p, nil
	}
	return "", fmt.Errorf("unknown install profile %q", s)
}

// Valid reports whether p is one of the known profiles.
func (p Profile) Valid() bool {
	switch p {
	case ProfileCPU, ProfileNVIDIA, ProfileNVIDIACU128, ProfileROCm:
		return true
	}
	return false
}

// DisplayName is the human label used in menus and summaries.
func (p Profile) DisplayName() string {
	switch p {
	case ProfileCPU:
		return "CPU Only"
	case ProfileNVIDIA:
		return "NVIDIA GPU (CUDA 12.1)"
	case ProfileNVIDIACU128:
		return "NVIDIA GPU (CUDA 12.8 / Blackwell)"
	case ProfileROCm:
		return "AMD GPU (ROCm 6.4)"
	}
	return string(p)
}

// EnvKind distinguishes the two interpreter environments the launcher can run in.
type EnvKind string

const (
	// EnvStandard is a venv layered on the host interpreter.
	EnvStandard EnvKind = "standard"
	// EnvPortable is a self-contained embeddable interpreter with its own packages.
	EnvPortable EnvKind = "portable"
)

// Accelerator identifies a detected GPU vendor.
type Accelerator string

const (
	AcceleratorNone   Accelerator = "none"
	AcceleratorNVIDIA Accelerator = "nvidia"
	AcceleratorAMD    Accelerator = "amd"
)

// HardwareProfile is the primary accelerator found on the host.
type HardwareProfile struct {
	Accelerator Accelerator
	DeviceName  string
}

// InstallState is what the marker files in an environment directory say.
// Installed is false whenever the completion marker is missing.
type InstallState struct {
	Installed   bool
	Profile     Profile
	CompletedAt time.Time
}
