//go:build !windows

package supervisor

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminate asks the payload to exit so it can release the GPU and its port.
func terminate(p *os.Process) error { return p.Signal(unix.SIGTERM) }
