package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}

	for _, raw := range []string{"", "/srv/tts", "relative/dir"} {
		if got, err := ExpandHome(raw); err != nil || got != raw {
			t.Fatalf("ExpandHome(%q) = %q, %v; want unchanged", raw, got, err)
		}
	}
	if got, err := ExpandHome("~"); err != nil || got != home {
		t.Fatalf("ExpandHome(~) = %q, %v; want %q", got, err, home)
	}
	got, err := ExpandHome("~/tts-server")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if want := filepath.Join(home, "tts-server"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPathExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, ".install_complete")
	if PathExists(f) {
		t.Fatalf("%s should not exist yet", f)
	}
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if !PathExists(f) || !PathExists(dir) {
		t.Fatalf("expected both %s and its directory to exist", f)
	}
}
