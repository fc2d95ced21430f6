package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(time.Duration) {}

func TestRemoveTree_ReadOnlyEntries(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "python_embedded")
	sub := filepath.Join(dir, "Lib", "site-packages")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	ro := filepath.Join(sub, "locked.pyd")
	require.NoError(t, os.WriteFile(ro, []byte("x"), 0o444))
	require.NoError(t, os.Chmod(sub, 0o555))

	res, err := RemoveTree(dir, RemoveOptions{Sleep: noSleep})
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Empty(t, res.MovedTo)
	assert.False(t, PathExists(dir))
}

func TestRemoveTree_Missing(t *testing.T) {
	res, err := RemoveTree(filepath.Join(t.TempDir(), "nope"), RemoveOptions{})
	require.NoError(t, err)
	assert.True(t, res.Removed)
}

func TestRemoveTree_LockedRenamesAside(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "venv")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	calls := 0
	old := removeFn
	removeFn = func(string) error {
		calls++
		return &fs.PathError{Op: "remove", Path: dir, Err: fs.ErrPermission}
	}
	t.Cleanup(func() { removeFn = old })

	var slept []time.Duration
	now := time.Unix(1700000000, 0)
	res, err := RemoveTree(dir, RemoveOptions{
		Now:   func() time.Time { return now },
		Sleep: func(d time.Duration) { slept = append(slept, d) },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
	assert.False(t, res.Removed)
	assert.Equal(t, fmt.Sprintf("%s.old.%d", dir, now.Unix()), res.MovedTo)
	assert.True(t, PathExists(res.MovedTo))
	assert.False(t, PathExists(dir))
}

func TestRemoveTree_NonPermissionSkipsRetry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "venv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	calls := 0
	old := removeFn
	removeFn = func(string) error { calls++; return fmt.Errorf("device busy") }
	t.Cleanup(func() { removeFn = old })

	res, err := RemoveTree(dir, RemoveOptions{Sleep: func(time.Duration) { t.Fatal("unexpected sleep") }})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NotEmpty(t, res.MovedTo)
}

func TestWriteFileAtomic(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".install_type")
	require.NoError(t, WriteFileAtomic(p, []byte("cpu"), 0o644))
	require.NoError(t, WriteFileAtomic(p, []byte("rocm"), 0o644))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "rocm", string(b))
}
