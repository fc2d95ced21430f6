package config

import (
	"testing"

	"voxlaunch/pkg/types"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "runtime_url: x\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "runtime_url=x\nportable_dir\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestLoadProject_DefaultsWhenNoFile(t *testing.T) {
	cfg, path, err := LoadProject(t.TempDir(), Env{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no settings file, got %s", path)
	}
	if cfg.RuntimeURL != "https://www.python.org/ftp/python/3.10.11/python-3.10.11-embed-amd64.zip" {
		t.Fatalf("runtime url: %s", cfg.RuntimeURL)
	}
	if cfg.Manifest(types.ProfileNVIDIACU128) != "requirements-nvidia-cu128.txt" {
		t.Fatalf("manifest: %s", cfg.Manifest(types.ProfileNVIDIACU128))
	}
	if cfg.ReadyTimeoutSeconds != 1800 || cfg.ServerScript != "server.py" || cfg.RuntimeSHA256 != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadProject_FileThenEnv(t *testing.T) {
	d := t.TempDir()
	writeTempFile(t, d, "launcher.toml", "runtime_version=\"3.10.9\"\nbootstrap_url=\"http://file/get-pip.py\"\n[manifests]\ncpu=\"cpu.txt\"\n")
	env := Env{"VOXLAUNCH_BOOTSTRAP_URL": "http://env/get-pip.py", "VOXLAUNCH_SIMULATE_PORTABLE": "yes"}
	cfg, path, err := LoadProject(d, env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path == "" {
		t.Fatalf("settings file not found")
	}
	if cfg.RuntimeURL != RuntimeURLFor("3.10.9") {
		t.Fatalf("runtime url should follow version: %s", cfg.RuntimeURL)
	}
	if cfg.BootstrapURL != "http://env/get-pip.py" {
		t.Fatalf("env should win: %s", cfg.BootstrapURL)
	}
	if !cfg.SimulatePortable {
		t.Fatalf("simulate flag from env not applied")
	}
	if cfg.Manifest(types.ProfileCPU) != "cpu.txt" || cfg.Manifest(types.ProfileROCm) != "requirements-rocm.txt" {
		t.Fatalf("manifest merge: %+v", cfg.Manifests)
	}
}

func TestLoadProject_BadTimeout(t *testing.T) {
	if _, _, err := LoadProject(t.TempDir(), Env{"VOXLAUNCH_READY_TIMEOUT": "-5"}); err == nil {
		t.Fatalf("expected error for negative timeout")
	}
}
