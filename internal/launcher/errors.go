package launcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voxlaunch/internal/config"
	"voxlaunch/internal/termui"
)

// Exit codes returned by the launcher binary.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitAborted = 2
)

// configError is a problem detected before anything on disk changes: a bad
// interpreter version, conflicting flags or an unreadable settings file.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }
func (e configError) Unwrap() error { return e.err }

// ErrConfig wraps err as a fatal configuration error.
func ErrConfig(err error) error { return configError{err: err} }

// IsConfig reports whether err is a fatal configuration error.
func IsConfig(err error) bool {
	var ce configError
	return errors.As(err, &ce)
}

// installError covers environment creation and package installation.
type installError struct{ err error }

func (e installError) Error() string { return "installation failed: " + e.err.Error() }
func (e installError) Unwrap() error { return e.err }

func ErrInstall(err error) error { return installError{err: err} }

// IsInstall reports whether err is an installation failure.
func IsInstall(err error) bool {
	var ie installError
	return errors.As(err, &ie)
}

type portInUseError struct{ addr config.ServerAddr }

func (e portInUseError) Error() string { return fmt.Sprintf("port %d is already in use", e.addr.Port) }

func ErrPortInUse(addr config.ServerAddr) error { return portInUseError{addr: addr} }

// IsPortInUse reports whether err came from the pre-launch port check.
func IsPortInUse(err error) bool {
	var pe portInUseError
	return errors.As(err, &pe)
}

// launchError means the payload could not be started or died before it was ready.
type launchError struct{ err error }

func (e launchError) Error() string { return "server failed to start: " + e.err.Error() }
func (e launchError) Unwrap() error { return e.err }

func ErrLaunch(err error) error { return launchError{err: err} }

// IsLaunch reports whether err is a launch failure.
func IsLaunch(err error) bool {
	var le launchError
	return errors.As(err, &le)
}

type readinessTimeoutError struct{ budget time.Duration }

func (e readinessTimeoutError) Error() string {
	return fmt.Sprintf("server did not become ready within %s", e.budget)
}

func ErrReadinessTimeout(budget time.Duration) error { return readinessTimeoutError{budget: budget} }

// IsReadinessTimeout reports whether the payload never opened its port.
func IsReadinessTimeout(err error) bool {
	var te readinessTimeoutError
	return errors.As(err, &te)
}

// payloadExitError records a non-zero exit of a payload that had been ready.
type payloadExitError struct{ code int }

func (e payloadExitError) Error() string { return fmt.Sprintf("server exited with code %d", e.code) }

func ErrPayloadExit(code int) error { return payloadExitError{code: code} }

// IsPayloadExit reports whether the payload stopped on its own with a failure.
func IsPayloadExit(err error) bool {
	var pe payloadExitError
	return errors.As(err, &pe)
}

type abortError struct{ reason string }

func (e abortError) Error() string { return e.reason }

// ErrAborted marks a run the operator cancelled.
func ErrAborted(reason string) error { return abortError{reason: reason} }

// IsAborted reports a declined prompt, closed input or an interrupt.
func IsAborted(err error) bool {
	var ae abortError
	return errors.As(err, &ae) || errors.Is(err, termui.ErrAborted) || errors.Is(err, context.Canceled)
}

// ExitCode maps a Run result to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsAborted(err):
		return ExitAborted
	default:
		return ExitFatal
	}
}
