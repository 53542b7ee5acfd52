package remote

import (
	"strings"
	"time"

	"github.com/derekg/geofront-cli/internal/client"
)

// Target is a resolved remote, ready to hand to the transport launcher
type Target struct {
	Alias string
	// Address is the final hop; its Jumps are always empty
	Address client.Address
	// Jumps are the hosts to go through, outermost first
	Jumps []client.Address

	// Certificate is an OpenSSH certificate the server issued for this
	// connection, if any
	Certificate string
	ExpiresAt   time.Time

	// Copy is set for scp transfers
	Copy *CopyPaths
}

// Hops returns every host on the way, outermost first, ending with the
// final address.
func (t *Target) Hops() []client.Address {
	hops := make([]client.Address, 0, len(t.Jumps)+1)
	hops = append(hops, t.Jumps...)
	return append(hops, t.Address)
}

// Direct reports whether the target is reached without jump hosts
func (t *Target) Direct() bool {
	return len(t.Jumps) == 0
}

// String renders the route, e.g. "jump@a:22 -> ubuntu@h:22"
func (t *Target) String() string {
	hops := t.Hops()
	parts := make([]string, len(hops))
	for i, h := range hops {
		parts[i] = h.String()
	}
	return strings.Join(parts, " -> ")
}

// flattenJumps returns the chain in front of a, outermost first. A jump
// host may itself list jumps; those come before it.
func flattenJumps(a client.Address) []client.Address {
	var out []client.Address
	for _, j := range a.Jumps {
		out = append(out, flattenJumps(j)...)
		j.Jumps = nil
		out = append(out, j)
	}
	return out
}
