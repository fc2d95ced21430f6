package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8004
)

// ServerAddr is where the payload listens.
type ServerAddr struct {
	Host string
	Port int
}

func (a ServerAddr) String() string { return net.JoinHostPort(a.Host, strconv.Itoa(a.Port)) }

// ProbeHost is the address to connect to when checking the port: wildcard binds
// are reached through loopback.
func (a ServerAddr) ProbeHost() string {
	switch a.Host {
	case "", "0.0.0.0":
		return "127.0.0.1"
	case "::", "[::]":
		return "::1"
	}
	return a.Host
}

// BrowseHost is what a human should type into a browser.
func (a ServerAddr) BrowseHost() string {
	switch a.Host {
	case "", "0.0.0.0", "::", "[::]":
		return "localhost"
	}
	return a.Host
}

var (
	hostRe = regexp.MustCompile(`(?m)^\s*host:\s*["']?([^"'#\n\r]+)["']?`)
	portRe = regexp.MustCompile(`(?m)^\s*port:\s*(\d+)`)
)

// ReadServerAddr extracts host and port from the payload's YAML config. The
// file is decoded as YAML first; when that fails the first host:/port: lines
// are matched directly. Missing files and unusable values fall back to
// 0.0.0.0:8004. The returned error is informational only.
func ReadServerAddr(path string) (ServerAddr, error) {
	addr := ServerAddr{Host: DefaultHost, Port: DefaultPort}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return addr, nil
	}
	if err != nil {
		return addr, err
	}

	host, port, yerr := fromYAML(b)
	if yerr != nil {
		host, port = fromPatterns(string(b))
	}
	if h := strings.TrimSpace(host); h != "" {
		addr.Host = h
	}
	if port >= 1 && port <= 65535 {
		addr.Port = port
	} else if port != 0 {
		return addr, fmt.Errorf("port %d out of range, using %d", port, DefaultPort)
	}
	if yerr != nil {
		return addr, fmt.Errorf("config is not valid YAML, used line matching: %w", yerr)
	}
	return addr, nil
}

// fromYAML returns the first host and port keys found anywhere in the
// document, preferring a top-level "server" mapping.
func fromYAML(b []byte) (string, int, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return "", 0, err
	}
	if len(doc.Content) == 0 {
		return "", 0, nil
	}
	root := doc.Content[0]
	search := root
	if srv := lookup(root, "server"); srv != nil && srv.Kind == yaml.MappingNode {
		search = srv
	}
	var host string
	var port int
	if n := find(search, "host"); n != nil && n.Kind == yaml.ScalarNode {
		host = n.Value
	}
	if n := find(search, "port"); n != nil && n.Kind == yaml.ScalarNode {
		port, _ = strconv.Atoi(strings.TrimSpace(n.Value))
	}
	return host, port, nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// find does a depth-first search in document order.
func find(n *yaml.Node, key string) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				return n.Content[i+1]
			}
			if v := find(n.Content[i+1], key); v != nil {
				return v
			}
		}
		return nil
	}
	for _, c := range n.Content {
		if v := find(c, key); v != nil {
			return v
		}
	}
	return nil
}

func fromPatterns(s string) (string, int) {
	var host string
	var port int
	if m := hostRe.FindStringSubmatch(s); m != nil {
		host = strings.TrimSpace(m[1])
	}
	if m := portRe.FindStringSubmatch(s); m != nil {
		port, _ = strconv.Atoi(m[1])
	}
	return host, port
}
