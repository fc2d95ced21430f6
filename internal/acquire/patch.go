package acquire

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxlaunch/internal/common/fsutil"
)

// PatchPathConfig rewrites the contents of an embeddable distribution's
// python3XX._pth file: existing path entries are kept, Lib\site-packages and
// ".." (the project root) are appended when missing, and "import site" is last.
func PatchPathConfig(content string) string {
	var paths []string
	hasSitePackages, hasParent := false, false
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s == "import site" || strings.HasPrefix(s, "#") {
			continue
		}
		paths = append(paths, s)
		if strings.Contains(s, "site-packages") {
			hasSitePackages = true
		}
		if s == ".." {
			hasParent = true
		}
	}
	if !hasSitePackages {
		paths = append(paths, `Lib\site-packages`)
	}
	if !hasParent {
		paths = append(paths, "..")
	}
	paths = append(paths, "import site")
	return strings.Join(paths, "\n") + "\n"
}

func patchPathFile(dir string) (string, error) {
	matches, _ := filepath.Glob(filepath.Join(dir, "python3*._pth"))
	if len(matches) == 0 {
		return "", fmt.Errorf("no python3*._pth file in %s", dir)
	}
	b, err := os.ReadFile(matches[0])
	if err != nil {
		return "", err
	}
	if err := fsutil.WriteFileAtomic(matches[0], []byte(PatchPathConfig(string(b))), 0o644); err != nil {
		return "", err
	}
	return filepath.Base(matches[0]), nil
}

// sitecustomize registers native library directories at interpreter start so
// extension modules find their DLLs however the interpreter is launched.
const sitecustomize = `# Generated by voxlaunch. Do not edit.
# Registers DLL search directories for the portable interpreter on Windows.
import os
import sys

if sys.platform == "win32" and hasattr(os, "add_dll_directory"):
    _exe_dir = os.path.dirname(sys.executable)
    _sp_dir = os.path.join(_exe_dir, "Lib", "site-packages")

    for _d in [_exe_dir, _sp_dir]:
        if os.path.isdir(_d):
            try:
                os.add_dll_directory(_d)
            except OSError:
                pass

    # *.libs holds native DLLs vendored by repaired wheels
    if os.path.isdir(_sp_dir):
        for _entry in os.listdir(_sp_dir):
            if _entry.endswith(".libs"):
                _libs_path = os.path.join(_sp_dir, _entry)
                if os.path.isdir(_libs_path):
                    try:
                        os.add_dll_directory(_libs_path)
                    except OSError:
                        pass
`

func writeSiteCustomize(dir string) error {
	return fsutil.WriteFileAtomic(filepath.Join(dir, "sitecustomize.py"), []byte(sitecustomize), 0o644)
}
