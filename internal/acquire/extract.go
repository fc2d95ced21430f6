package acquire

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// errNotZip is reported when the download is not an archive at all, which
// usually means a proxy or captive portal answered with an HTML page.
type errNotZip struct{ cause error }

func (e errNotZip) Error() string {
	return fmt.Sprintf("downloaded file is not a valid zip archive (%v); the network may be returning an error page instead", e.cause)
}

func (e errNotZip) Unwrap() error { return e.cause }

// extractZip unpacks src into dest, rejecting entries that would land outside it.
func extractZip(src, dest string) (int, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return 0, errNotZip{cause: err}
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, err
	}
	base := filepath.Clean(dest) + string(os.PathSeparator)
	n := 0
	for _, f := range r.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, base) {
			return n, fmt.Errorf("archive entry %q escapes %s", f.Name, dest)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return n, err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
