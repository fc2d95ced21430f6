package config

import (
	"fmt"

	"voxlaunch/pkg/types"
)

const (
	DefaultRuntimeVersion = "3.10.11"
	DefaultBootstrapURL   = "https://bootstrap.pypa.io/get-pip.py"
	// DefaultSupplementaryPackage is installed without dependencies on top of
	// the nvidia-cu128 manifest.
	DefaultSupplementaryPackage = "git+https://github.com/devnen/chatterbox-v2.git@master"
	DefaultReadyTimeoutSeconds  = 1800
)

// RuntimeURLFor builds the python.org embeddable archive URL for version.
func RuntimeURLFor(version string) string {
	return fmt.Sprintf("https://www.python.org/ftp/python/%s/python-%s-embed-amd64.zip", version, version)
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		RuntimeVersion:       DefaultRuntimeVersion,
		RuntimeURL:           RuntimeURLFor(DefaultRuntimeVersion),
		BootstrapURL:         DefaultBootstrapURL,
		SupplementaryPackage: DefaultSupplementaryPackage,
		Manifests: map[string]string{
			string(types.ProfileCPU):         "requirements.txt",
			string(types.ProfileNVIDIA):      "requirements-nvidia.txt",
			string(types.ProfileNVIDIACU128): "requirements-nvidia-cu128.txt",
			string(types.ProfileROCm):        "requirements-rocm.txt",
		},
		StandardDir:         "venv",
		PortableDir:         "python_embedded",
		ServerScript:        "server.py",
		PayloadConfig:       "config.yaml",
		ReadyTimeoutSeconds: DefaultReadyTimeoutSeconds,
	}
}

// Manifest returns the requirements file for p.
func (c Config) Manifest(p types.Profile) string {
	if m := c.Manifests[string(p)]; m != "" {
		return m
	}
	return Defaults().Manifests[string(p)]
}
