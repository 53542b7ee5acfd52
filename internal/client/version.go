package client

import (
	"fmt"
	"strings"

	"github.com/juju/version/v2"

	"github.com/derekg/geofront-cli/internal/config"
)

// VersionHeader carries the server's protocol version on every response
const VersionHeader = "X-Geofront-Version"

var (
	minProtocol = version.MustParse(config.MinServerVersion)
	maxProtocol = version.MustParse(config.MaxServerVersion)
)

// ParseProtocolVersion parses a header value such as "0.4.1". A bare
// "major.minor" is read as "major.minor.0".
func ParseProtocolVersion(raw string) (version.Number, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return version.Number{}, fmt.Errorf("the server did not send the protocol version (%s)", VersionHeader)
	}
	s := raw
	if strings.Count(s, ".") == 1 {
		s += ".0"
	}
	n, err := version.Parse(s)
	if err != nil {
		return version.Number{}, fmt.Errorf("the protocol version the server sent is not a valid format: %q", raw)
	}
	return n, nil
}

// CheckProtocolVersion validates raw against the supported range
func CheckProtocolVersion(raw string) (version.Number, error) {
	n, err := ParseProtocolVersion(raw)
	if err != nil {
		return n, err
	}
	if n.Compare(minProtocol) < 0 || n.Compare(maxProtocol) > 0 {
		return n, fmt.Errorf("the server protocol version (%s) is incompatible; supported %s to %s", n, minProtocol, maxProtocol)
	}
	return n, nil
}
