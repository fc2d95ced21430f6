package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the launcher's own settings. Zero values mean "unspecified" and
// are replaced by Defaults when merged.
type Config struct {
	RuntimeVersion       string            `json:"runtime_version" yaml:"runtime_version" toml:"runtime_version"`
	RuntimeURL           string            `json:"runtime_url" yaml:"runtime_url" toml:"runtime_url"`
	RuntimeSHA256        string            `json:"runtime_sha256" yaml:"runtime_sha256" toml:"runtime_sha256"`
	BootstrapURL         string            `json:"bootstrap_url" yaml:"bootstrap_url" toml:"bootstrap_url"`
	SupplementaryPackage string            `json:"supplementary_package" yaml:"supplementary_package" toml:"supplementary_package"`
	Manifests            map[string]string `json:"manifests" yaml:"manifests" toml:"manifests"`
	StandardDir          string            `json:"standard_dir" yaml:"standard_dir" toml:"standard_dir"`
	PortableDir          string            `json:"portable_dir" yaml:"portable_dir" toml:"portable_dir"`
	ServerScript         string            `json:"server_script" yaml:"server_script" toml:"server_script"`
	PayloadConfig        string            `json:"payload_config" yaml:"payload_config" toml:"payload_config"`
	ReadyTimeoutSeconds  int               `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds"`
	SimulatePortable     bool              `json:"simulate_portable" yaml:"simulate_portable" toml:"simulate_portable"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// SettingsFiles are looked up in the project root, first match wins.
var SettingsFiles = []string{"launcher.toml", "launcher.yaml", "launcher.yml", "launcher.json"}

// FindSettings returns the first settings file present under root, or "".
func FindSettings(root string) string {
	for _, name := range SettingsFiles {
		p := filepath.Join(root, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// LoadProject merges, in increasing priority: Defaults, the project settings
// file, then VOXLAUNCH_* variables from env. It returns the settings file used.
func LoadProject(root string, env Env) (Config, string, error) {
	cfg := Defaults()
	path := FindSettings(root)
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, path, fmt.Errorf("settings %s: %w", filepath.Base(path), err)
		}
		cfg = Merge(cfg, fileCfg)
	}
	cfg = applyEnv(cfg, env)
	if cfg.ReadyTimeoutSeconds <= 0 {
		return cfg, path, fmt.Errorf("ready_timeout_seconds must be positive, got %d", cfg.ReadyTimeoutSeconds)
	}
	return cfg, path, nil
}

// Merge overlays the non-zero fields of over onto base.
func Merge(base, over Config) Config {
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(&base.RuntimeVersion, over.RuntimeVersion)
	if strings.TrimSpace(over.RuntimeVersion) != "" && strings.TrimSpace(over.RuntimeURL) == "" {
		base.RuntimeURL = RuntimeURLFor(base.RuntimeVersion)
	}
	str(&base.RuntimeURL, over.RuntimeURL)
	str(&base.RuntimeSHA256, over.RuntimeSHA256)
	str(&base.BootstrapURL, over.BootstrapURL)
	str(&base.SupplementaryPackage, over.SupplementaryPackage)
	str(&base.StandardDir, over.StandardDir)
	str(&base.PortableDir, over.PortableDir)
	str(&base.ServerScript, over.ServerScript)
	str(&base.PayloadConfig, over.PayloadConfig)
	if over.ReadyTimeoutSeconds != 0 {
		base.ReadyTimeoutSeconds = over.ReadyTimeoutSeconds
	}
	if over.SimulatePortable {
		base.SimulatePortable = true
	}
	if len(over.Manifests) > 0 {
		m := make(map[string]string, len(base.Manifests))
		for k, v := range base.Manifests {
			m[k] = v
		}
		for k, v := range over.Manifests {
			m[k] = v
		}
		base.Manifests = m
	}
	return base
}
