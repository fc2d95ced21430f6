package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "launcher.yaml", "runtime_url: http://mirror/py.zip\nserver_script: app.py\nready_timeout_seconds: 60\nmanifests:\n  cpu: req-cpu.txt\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeURL != "http://mirror/py.zip" || cfg.ServerScript != "app.py" || cfg.ReadyTimeoutSeconds != 60 || cfg.Manifests["cpu"] != "req-cpu.txt" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "launcher.json", `{"bootstrap_url":"http://mirror/get-pip.py","portable_dir":"rt","simulate_portable":true}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BootstrapURL != "http://mirror/get-pip.py" || cfg.PortableDir != "rt" || !cfg.SimulatePortable {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "launcher.toml", "runtime_sha256=\"abc\"\nstandard_dir=\".venv\"\n[manifests]\nrocm=\"req-rocm.txt\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RuntimeSHA256 != "abc" || cfg.StandardDir != ".venv" || cfg.Manifests["rocm"] != "req-rocm.txt" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
