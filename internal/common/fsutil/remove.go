package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RemoveOptions bounds the retry behaviour of RemoveTree.
type RemoveOptions struct {
	Attempts int           // total attempts on permission errors, default 3
	Backoff  time.Duration // fixed delay between attempts, default 2s
	Now      func() time.Time
	Sleep    func(time.Duration)
}

// RemoveResult says where the tree went. MovedTo is set when the tree could
// not be deleted and was renamed aside instead.
type RemoveResult struct {
	Removed bool
	MovedTo string
}

// removeFn is swapped in tests to simulate locked trees.
var removeFn = removeTree

// RemoveTree deletes path and everything below it. Read-only entries get their
// write bit restored and are retried once. Permission failures on the whole tree
// are retried with a fixed backoff; when every attempt fails the directory is
// renamed to "<name>.old.<unix-seconds>". An error is returned only when the
// rename fails too. A missing path is not an error.
func RemoveTree(path string, opts RemoveOptions) (RemoveResult, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return RemoveResult{Removed: true}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		lastErr = removeFn(path)
		if lastErr == nil {
			return RemoveResult{Removed: true}, nil
		}
		if !errors.Is(lastErr, fs.ErrPermission) {
			break
		}
		if attempt < opts.Attempts {
			opts.Sleep(opts.Backoff)
		}
	}

	aside := path + ".old." + strconv.FormatInt(opts.Now().Unix(), 10)
	if err := os.Rename(path, aside); err != nil {
		return RemoveResult{}, fmt.Errorf("remove %s: %v; rename aside: %w", path, lastErr, err)
	}
	return RemoveResult{MovedTo: aside}, nil
}

// removeTree walks depth-first so each failing entry can be fixed up and
// retried on its own.
func removeTree(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			if !errors.Is(err, fs.ErrPermission) {
				return err
			}
			makeWritable(path)
			if entries, err = os.ReadDir(path); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := removeTree(filepath.Join(path, e.Name())); err != nil {
				return err
			}
		}
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		makeWritable(path)
		makeWritable(filepath.Dir(path))
		return os.Remove(path)
	}
	return nil
}

// makeWritable sets the owner write bit, which also clears the Windows
// read-only attribute.
func makeWritable(path string) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 {
		return
	}
	mode := info.Mode().Perm() | 0o200
	if info.IsDir() {
		mode |= 0o700
	}
	_ = os.Chmod(path, mode)
}
