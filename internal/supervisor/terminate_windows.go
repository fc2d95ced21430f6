//go:build windows

package supervisor

import "os"

// Windows has no catchable termination signal for console children; Kill maps
// to TerminateProcess just like a terminate request would.
func terminate(p *os.Process) error { return p.Kill() }
