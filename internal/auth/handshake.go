// Package auth runs the browser-delegated login against a Geofront server
// and persists the resulting access token.
package auth

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/derekg/geofront-cli/internal/client"
	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/i18n"
	"github.com/derekg/geofront-cli/internal/security"
)

// State is a step of the handshake state machine
type State int

const (
	Idle State = iota
	Started
	Polling
	Succeeded
	Denied
	TimedOut
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Started:
		return "started"
	case Polling:
		return "polling"
	case Succeeded:
		return "succeeded"
	case Denied:
		return "denied"
	case TimedOut:
		return "timed_out"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen from s
func (s State) Terminal() bool {
	return s >= Succeeded
}

// Server is the part of the server protocol the handshake needs
type Server interface {
	StartHandshake(ctx context.Context) (*client.Handshake, error)
	PollHandshake(ctx context.Context, id string) (*client.PollResult, error)
}

// TokenSaver persists a token once the handshake succeeds
type TokenSaver interface {
	SaveToken(token string) error
}

// TokenSaverFunc adapts a function to TokenSaver
type TokenSaverFunc func(token string) error

// SaveToken implements TokenSaver
func (f TokenSaverFunc) SaveToken(token string) error { return f(token) }

// Session is the process-local record of one handshake
type Session struct {
	ID         string
	BrowserURL string
	State      State
	Attempts   int
}

// Authenticator drives one handshake at a time
type Authenticator struct {
	server    Server
	saver     TokenSaver
	browser   Browser
	confirmer Confirmer
	clock     Clock
	logger    *log.Logger
	out       io.Writer
	audit     *security.SecurityLogger
	endpoint  string

	interval time.Duration
	attempts int
	timeout  time.Duration

	session *Session
}

// Option configures an Authenticator
type Option func(*Authenticator)

// WithBrowser sets how the login URL is opened. A nil browser only prints it.
func WithBrowser(b Browser) Option {
	return func(a *Authenticator) { a.browser = b }
}

// WithConfirmer sets the wait for the user to finish in the browser
func WithConfirmer(c Confirmer) Option {
	return func(a *Authenticator) { a.confirmer = c }
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(a *Authenticator) { a.clock = c }
}

// WithLogger sets the debug logger
func WithLogger(l *log.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithOutput sets where instructions for the user are printed
func WithOutput(w io.Writer) Option {
	return func(a *Authenticator) { a.out = w }
}

// WithAudit records handshake events for endpoint
func WithAudit(audit *security.SecurityLogger, endpoint string) Option {
	return func(a *Authenticator) {
		a.audit = audit
		a.endpoint = endpoint
	}
}

// WithPollInterval sets the wait between polls
func WithPollInterval(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of polls
func WithMaxAttempts(n int) Option {
	return func(a *Authenticator) {
		if n > 0 {
			a.attempts = n
		}
	}
}

// WithTimeout bounds the wall-clock time spent polling
func WithTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// New creates an Authenticator
func New(server Server, saver TokenSaver, opts ...Option) *Authenticator {
	a := &Authenticator{
		server:    server,
		saver:     saver,
		browser:   SystemBrowser(),
		confirmer: NopConfirmer{},
		clock:     WallClock(),
		logger:    log.New(io.Discard, "", 0),
		out:       io.Discard,
		interval:  config.DefaultPollInterval,
		attempts:  config.DefaultPollAttempts,
		timeout:   config.DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the state of the current session, Idle if none was started
func (a *Authenticator) State() State {
	if a.session == nil {
		return Idle
	}
	return a.session.State
}

// Session returns a copy of the current session, or nil
func (a *Authenticator) Session() *Session {
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

func (a *Authenticator) transition(to State) {
	a.logger.Printf("handshake: %s -> %s", a.session.State, to)
	a.session.State = to
}

// Run performs a full handshake and returns the saved token. Any previous
// session is discarded. The token is written only when the handshake
// succeeds.
func (a *Authenticator) Run(ctx context.Context) (string, error) {
	const op = "authenticate"
	a.session = &Session{State: Idle}

	hs, err := a.server.StartHandshake(ctx)
	if err != nil {
		return "", a.fail(op, err)
	}
	a.session.ID = hs.ID
	a.session.BrowserURL = hs.BrowserURL
	a.transition(Started)
	a.audit.LogHandshakeStarted(a.endpoint, hs.ID)

	fmt.Fprintln(a.out, i18n.T("auth_continue_in_browser"))
	fmt.Fprintf(a.out, "\n  %s\n\n", hs.BrowserURL)
	if a.browser != nil {
		if err := a.browser.Open(hs.BrowserURL); err != nil {
			a.logger.Printf("opening browser failed: %v", err)
			fmt.Fprintln(a.out, i18n.T("auth_browser_failed", err))
		}
	}

	if err := a.confirmer.Confirm(ctx); err != nil {
		return "", a.fail(op, err)
	}

	a.transition(Polling)
	fmt.Fprintln(a.out, i18n.T("auth_waiting"))
	token, err := a.poll(ctx)
	if err != nil {
		return "", err
	}

	if err := a.saver.SaveToken(token); err != nil {
		return "", a.fail(op, gerrors.NewConfigurationError("save token", err))
	}
	a.transition(Succeeded)
	a.audit.LogTokenStored(a.endpoint)
	a.audit.LogHandshakeFinished(a.endpoint, Succeeded.String(), true)
	return token, nil
}

// poll asks the server for the handshake result until it settles, the
// attempts run out or the deadline passes.
func (a *Authenticator) poll(ctx context.Context) (string, error) {
	const op = "poll handshake"
	deadline := a.clock.Now().Add(a.timeout)

	for {
		if err := ctx.Err(); err != nil {
			return "", a.fail(op, err)
		}
		a.session.Attempts++
		res, err := a.server.PollHandshake(ctx, a.session.ID)
		switch {
		case err == nil && res.Status == client.StatusDone:
			return res.Token, nil
		case err == nil && res.Status == client.StatusDenied,
			gerrors.Is(err, gerrors.KindHandshakeDenied):
			return "", a.finish(Denied, gerrors.New(gerrors.KindHandshakeDenied, op, err))
		case err == nil && res.Status == client.StatusNotFound:
			return "", a.fail(op, gerrors.New(gerrors.KindHandshakeNotFound, op, nil))
		case err == nil && res.Status == client.StatusPending,
			gerrors.Is(err, gerrors.KindHandshakeNotFinished):
			a.logger.Printf("handshake %s still pending (attempt %d/%d)", a.session.ID, a.session.Attempts, a.attempts)
		case gerrors.Is(err, gerrors.KindServerUnavailable):
			a.logger.Printf("poll attempt %d failed, will retry: %v", a.session.Attempts, err)
		default:
			return "", a.fail(op, err)
		}

		if a.session.Attempts >= a.attempts {
			return "", a.finish(TimedOut, gerrors.Newf(gerrors.KindHandshakeTimedOut, op, "no result after %d attempts", a.session.Attempts))
		}

		select {
		case <-ctx.Done():
			return "", a.fail(op, ctx.Err())
		case <-a.clock.After(a.interval):
		}

		if !a.clock.Now().Before(deadline) {
			return "", a.finish(TimedOut, gerrors.Newf(gerrors.KindHandshakeTimedOut, op, "no result within %s", a.timeout))
		}
	}
}

// fail moves the session to Error. Errors the client already classified
// keep their kind; anything else becomes a handshake failure.
func (a *Authenticator) fail(op string, err error) error {
	if gerrors.KindOf(err) == gerrors.KindUnknown {
		err = gerrors.New(gerrors.KindHandshakeFailed, op, err)
	}
	return a.finish(Error, err)
}

func (a *Authenticator) finish(state State, err error) error {
	a.transition(state)
	a.audit.LogHandshakeFinished(a.endpoint, state.String(), false)
	return err
}
