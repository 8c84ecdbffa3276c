package conf

import (
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Endpoint is one selected database endpoint. SocketPath and Host/Port
// are mutually exclusive: a file:// endpoint yields only SocketPath.
type Endpoint struct {
	Host       string
	Port       string
	SocketPath string
}

// SelectEndpoint picks the first usable endpoint from a comma-separated
// candidate list, trimming whitespace. An empty list is a configuration
// error that blocks the unit.
func SelectEndpoint(endpoints string) (Endpoint, error) {
	for _, candidate := range strings.Split(endpoints, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		if path, ok := strings.CutPrefix(candidate, "file://"); ok {
			return Endpoint{SocketPath: path}, nil
		}

		host, port, err := net.SplitHostPort(candidate)
		if err != nil {
			return Endpoint{}, errors.Wrapf(err, "invalid database endpoint %q", candidate)
		}
		return Endpoint{Host: host, Port: port}, nil
	}

	return Endpoint{}, errors.New("no database endpoints provided")
}
