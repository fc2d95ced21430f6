package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxlaunch/pkg/types"
)

func fixedClock(ts string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, ts)
	return func() time.Time { return t }
}

func TestStore_EmptyDirIsNotInstalled(t *testing.T) {
	st, err := Store{Dir: t.TempDir()}.Load()
	require.NoError(t, err)
	assert.False(t, st.Installed)
}

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := Store{Dir: dir, Now: fixedClock("2026-10-18T09:30:00Z")}
	require.NoError(t, s.Save(types.ProfileNVIDIACU128))

	st, err := s.Load()
	require.NoError(t, err)
	assert.True(t, st.Installed)
	assert.Equal(t, types.ProfileNVIDIACU128, st.Profile)
	assert.Equal(t, 2026, st.CompletedAt.Year())

	b, err := os.ReadFile(filepath.Join(dir, CompletionMarker))
	require.NoError(t, err)
	assert.Equal(t, "Installation completed at 2026-10-18T09:30:00Z\nType: nvidia-cu128\n", string(b))
	b, err = os.ReadFile(filepath.Join(dir, ProfileMarker))
	require.NoError(t, err)
	assert.Equal(t, "nvidia-cu128", string(b))
}

func TestStore_UpgradeKeepsProfileBytes(t *testing.T) {
	dir := t.TempDir()
	s := Store{Dir: dir}
	require.NoError(t, s.Save(types.ProfileROCm))
	before, err := os.ReadFile(filepath.Join(dir, ProfileMarker))
	require.NoError(t, err)
	infoBefore, err := os.Stat(filepath.Join(dir, ProfileMarker))
	require.NoError(t, err)

	require.NoError(t, s.ClearCompletion())
	st, err := s.Load()
	require.NoError(t, err)
	assert.False(t, st.Installed)
	p, ok := s.Profile()
	require.True(t, ok)
	assert.Equal(t, types.ProfileROCm, p)

	require.NoError(t, s.Save(p))
	after, err := os.ReadFile(filepath.Join(dir, ProfileMarker))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	infoAfter, err := os.Stat(filepath.Join(dir, ProfileMarker))
	require.NoError(t, err)
	assert.Equal(t, infoBefore.ModTime(), infoAfter.ModTime(), "profile marker must not be rewritten")
}

func TestStore_CompletionWithoutProfileIsNotInstalled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CompletionMarker), []byte("Installation completed at x\n"), 0o644))
	st, err := Store{Dir: dir}.Load()
	require.NoError(t, err)
	assert.False(t, st.Installed)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ProfileMarker), []byte("tpu"), 0o644))
	st, err = Store{Dir: dir}.Load()
	require.NoError(t, err)
	assert.False(t, st.Installed)
}

func TestStore_RejectsInvalidProfile(t *testing.T) {
	assert.Error(t, Store{Dir: t.TempDir()}.Save("gpu"))
}
