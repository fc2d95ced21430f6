package supervisor

import (
	"net"
	"strconv"
	"time"
)

// Dial reports whether something accepts TCP connections on host:port.
func Dial(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// PortInUse is the pre-launch check: a listener already on the port means the
// payload could not bind it.
func PortInUse(host string, port int) bool { return Dial(host, port, time.Second) }
