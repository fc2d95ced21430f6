// Package platform identifies the host OS and the interpreter that standard
// environments are built from.
package platform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"voxlaunch/internal/execx"
)

const (
	// MinimumVersion is the oldest interpreter the payload supports.
	MinimumVersion = "v3.10.0"
	// CompatBoundary is the first version without prebuilt wheels for several
	// payload dependencies.
	CompatBoundary = "v3.11.0"

	probeTimeout = 10 * time.Second
	downloadURL  = "https://www.python.org/downloads/"
)

// Version is a parsed interpreter version.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch) }

// Semver renders v in golang.org/x/mod/semver form.
func (v Version) Semver() string { return "v" + v.String() }

// AtLeast compares against a semver string such as CompatBoundary.
func (v Version) AtLeast(bound string) bool { return semver.Compare(v.Semver(), bound) >= 0 }

// Info describes the host.
type Info struct {
	OS          string
	Interpreter []string // program plus leading args, e.g. ["py", "-3"]
	Version     Version
}

// SupportsPortable reports whether the embeddable interpreter distribution
// exists for os.
func SupportsPortable(goos string) bool { return goos == "windows" }

// Prober locates the host interpreter.
type Prober struct {
	GOOS       string     // defaults to runtime.GOOS
	Candidates [][]string // defaults per OS
	Runner     execx.Runner
}

var versionRe = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the version from `python --version` output.
func ParseVersion(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("unrecognised interpreter version output %q", strings.TrimSpace(s))
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

func defaultCandidates(goos string) [][]string {
	if goos == "windows" {
		return [][]string{{"python"}, {"py", "-3"}}
	}
	return [][]string{{"python3"}, {"python"}}
}

// Probe returns the host description, or a *VersionError when the first working
// interpreter is older than MinimumVersion.
func (p *Prober) Probe(ctx context.Context) (Info, error) {
	goos := p.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	cands := p.Candidates
	if len(cands) == 0 {
		cands = defaultCandidates(goos)
	}
	var lastErr error
	for _, c := range cands {
		args := append(append([]string(nil), c[1:]...), "--version")
		res, err := p.Runner.Run(ctx, execx.Cmd{Path: c[0], Args: args, Timeout: probeTimeout, Capture: true})
		if err != nil {
			if ctx.Err() != nil {
				return Info{}, ctx.Err()
			}
			lastErr = err
			continue
		}
		// Older interpreters print the version on stderr.
		v, err := ParseVersion(res.Stdout + res.Stderr)
		if err != nil {
			lastErr = err
			continue
		}
		info := Info{OS: goos, Interpreter: c, Version: v}
		if !v.AtLeast(MinimumVersion) {
			return info, &VersionError{Found: v}
		}
		return info, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no candidates")
	}
	return Info{OS: goos}, &VersionError{Missing: true, cause: lastErr}
}

// VersionError means no usable interpreter was found.
type VersionError struct {
	Found   Version
	Missing bool
	cause   error
}

func (e *VersionError) Error() string {
	min := strings.TrimSuffix(strings.TrimPrefix(MinimumVersion, "v"), ".0")
	if e.Missing {
		return fmt.Sprintf("no Python interpreter found (%v); install Python %s+ from %s", e.cause, min, downloadURL)
	}
	return fmt.Sprintf("Python %s+ is required, found %s; install a newer version from %s", min, e.Found, downloadURL)
}

func (e *VersionError) Unwrap() error { return e.cause }
