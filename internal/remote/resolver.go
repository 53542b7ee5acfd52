// Package remote turns remote aliases into connection targets
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/juju/clock"

	"github.com/derekg/geofront-cli/internal/client"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/keys"
	"github.com/derekg/geofront-cli/internal/security"
)

// ErrReauthenticate marks a failure caused by a token the server no longer
// accepts. The original error stays in the chain.
var ErrReauthenticate = errors.New("access token is no longer valid")

// Lister is the part of the server protocol the resolver needs
type Lister interface {
	ListRemotes(ctx context.Context, token string) (map[string]client.Remote, error)
	RequestSignedKey(ctx context.Context, token, alias, publicKey string) (*client.Authorization, error)
}

// Alias is a remote name with the addresses the server lists for it
type Alias struct {
	Name      string
	Addresses []client.Address
}

// Resolver resolves aliases against a server
type Resolver struct {
	server       Lister
	addressIndex int
	validator    *security.InputValidator
	logger       *log.Logger
	clock        Clock
}

// Clock tells the resolver the time certificates are checked against
type Clock interface {
	Now() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithAddressIndex picks which of several addresses to use. The default is
// the first one in server order.
func WithAddressIndex(i int) Option {
	return func(r *Resolver) { r.addressIndex = i }
}

// WithLogger sets the debug logger
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(r *Resolver) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewResolver creates a resolver backed by server
func NewResolver(server Lister, opts ...Option) *Resolver {
	r := &Resolver{
		server:    server,
		validator: security.DefaultValidator,
		logger:    log.New(io.Discard, "", 0),
		clock:     clock.WallClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func reauth(err error) error {
	if gerrors.Is(err, gerrors.KindUnauthenticated) {
		return fmt.Errorf("%w: %w", ErrReauthenticate, err)
	}
	return err
}

// ListAliases returns the remotes the token may access, sorted by name
func (r *Resolver) ListAliases(ctx context.Context, token string) ([]Alias, error) {
	remotes, err := r.server.ListRemotes(ctx, token)
	if err != nil {
		return nil, reauth(err)
	}

	aliases := make([]Alias, 0, len(remotes))
	for name, rem := range remotes {
		aliases = append(aliases, Alias{Name: name, Addresses: rem.Addresses})
	}
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Name < aliases[j].Name })
	return aliases, nil
}

// Resolve turns [user@]alias[:port] into a target. A user in the spec
// replaces the login user of the final hop.
func (r *Resolver) Resolve(ctx context.Context, token, spec string) (*Target, error) {
	sp, err := ParseSpec(spec)
	if err != nil {
		return nil, err
	}

	remotes, err := r.server.ListRemotes(ctx, token)
	if err != nil {
		return nil, reauth(err)
	}
	rem, ok := remotes[sp.Alias]
	if !ok {
		return nil, gerrors.NewUnknownAliasError(sp.Alias, nil)
	}

	if r.addressIndex < 0 || r.addressIndex >= len(rem.Addresses) {
		return nil, gerrors.NewUsageError("address index %d is out of range: %s has %d address(es)", r.addressIndex, sp.Alias, len(rem.Addresses))
	}
	if len(rem.Addresses) > 1 {
		r.logger.Printf("%s has %d addresses, using #%d", sp.Alias, len(rem.Addresses), r.addressIndex)
	}

	return r.build(sp, rem.Addresses[r.addressIndex])
}

// ResolveAuthorized resolves spec and asks the server to authorize the
// connection. The address the server answers with replaces the listed one,
// and any certificate it issues is attached.
func (r *Resolver) ResolveAuthorized(ctx context.Context, token, spec, publicKey string) (*Target, error) {
	t, err := r.Resolve(ctx, token, spec)
	if err != nil {
		return nil, err
	}

	auth, err := r.server.RequestSignedKey(ctx, token, t.Alias, publicKey)
	if err != nil {
		if gerrors.Is(err, gerrors.KindUnknownAlias) {
			return nil, gerrors.NewUnknownAliasError(t.Alias, err)
		}
		return nil, reauth(err)
	}
	if err := r.checkCertificate(t.Alias, auth.Certificate); err != nil {
		return nil, err
	}

	if auth.Remote != nil {
		addr := *auth.Remote
		if len(addr.Jumps) == 0 {
			addr.Jumps = t.Jumps
		}
		sp, _ := ParseSpec(spec)
		if t, err = r.build(sp, addr); err != nil {
			return nil, err
		}
	}
	t.Certificate = auth.Certificate
	t.ExpiresAt = auth.ExpiresAt
	return t, nil
}

// checkCertificate rejects an issued certificate that ssh could not use
func (r *Resolver) checkCertificate(alias, line string) error {
	if line == "" {
		return nil
	}
	const op = "authorize remote"
	cert, err := keys.ParseCertificate([]byte(line))
	if err != nil {
		return gerrors.NewProtocolError(op, "certificate for %s: %v", alias, err)
	}
	if now := r.clock.Now(); !keys.CertificateValidAt(cert, now) {
		return gerrors.NewProtocolError(op, "certificate for %s is not valid at %s", alias, now.UTC().Format(time.RFC3339))
	}
	return nil
}

// build validates every hop of addr and assembles the target
func (r *Resolver) build(sp Spec, addr client.Address) (*Target, error) {
	t := &Target{Alias: sp.Alias, Jumps: flattenJumps(addr)}
	addr.Jumps = nil
	if sp.User != "" {
		addr.User = sp.User
	}
	t.Address = addr

	for _, hop := range t.Hops() {
		if err := r.validate(hop); err != nil {
			return nil, gerrors.NewProtocolError("resolve remote", "server sent an unusable address for %s (%s): %v", sp.Alias, hop, err)
		}
	}
	r.logger.Printf("resolved %s to %s", sp, t)
	return t, nil
}

func (r *Resolver) validate(a client.Address) error {
	if err := r.validator.ValidateHostname(a.Host); err != nil {
		return err
	}
	if a.User != "" {
		if err := r.validator.ValidateSSHUser(a.User); err != nil {
			return err
		}
	}
	return r.validator.ValidatePort(a.Port)
}
