// Package state persists whether dependency installation finished and which
// profile it used, as two small marker files in the environment directory.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxlaunch/internal/common/fsutil"
	"voxlaunch/pkg/types"
)

const (
	ProfileMarker    = ".install_type"
	CompletionMarker = ".install_complete"
)

// Store reads and writes the markers under Dir.
type Store struct {
	Dir string
	Now func() time.Time
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Store) profilePath() string    { return filepath.Join(s.Dir, ProfileMarker) }
func (s Store) completionPath() string { return filepath.Join(s.Dir, CompletionMarker) }

// Load reports the install state. A missing completion marker, or one without a
// valid profile marker beside it, means not installed.
func (s Store) Load() (types.InstallState, error) {
	b, err := os.ReadFile(s.completionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return types.InstallState{}, nil
	}
	if err != nil {
		return types.InstallState{}, fmt.Errorf("read %s: %w", CompletionMarker, err)
	}
	prof, ok := s.Profile()
	if !ok {
		return types.InstallState{}, nil
	}
	return types.InstallState{Installed: true, Profile: prof, CompletedAt: parseCompletedAt(string(b))}, nil
}

// Profile returns the recorded profile regardless of completion.
func (s Store) Profile() (types.Profile, bool) {
	b, err := os.ReadFile(s.profilePath())
	if err != nil {
		return "", false
	}
	p, err := types.ParseProfile(string(b))
	if err != nil {
		return "", false
	}
	return p, true
}

// Save records a finished install. The profile marker is written first and left
// untouched when it already holds p.
func (s Store) Save(p types.Profile) error {
	if !p.Valid() {
		return fmt.Errorf("refusing to record invalid profile %q", p)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	if cur, ok := s.Profile(); !ok || cur != p {
		if err := fsutil.WriteFileAtomic(s.profilePath(), []byte(p), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", ProfileMarker, err)
		}
	}
	body := fmt.Sprintf("Installation completed at %s\nType: %s\n", s.now().Format(time.RFC3339), p)
	if err := fsutil.WriteFileAtomic(s.completionPath(), []byte(body), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", CompletionMarker, err)
	}
	return nil
}

// ClearCompletion forces the next run to reinstall while keeping the profile.
func (s Store) ClearCompletion() error {
	err := os.Remove(s.completionPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func parseCompletedAt(body string) time.Time {
	line, _, _ := strings.Cut(body, "\n")
	ts := strings.TrimSpace(strings.TrimPrefix(line, "Installation completed at"))
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
