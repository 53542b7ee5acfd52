package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/derekg/geofront-cli/internal/auth"
	"github.com/derekg/geofront-cli/internal/client"
	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/i18n"
	"github.com/derekg/geofront-cli/internal/keys"
	"github.com/derekg/geofront-cli/internal/remote"
	"github.com/derekg/geofront-cli/internal/security"
	"github.com/derekg/geofront-cli/internal/transport"
	"github.com/derekg/geofront-cli/internal/tunnel"
)

// Config holds the global command-line flags
type Config struct {
	Debug         bool
	NoOpenBrowser bool
	SSHProgram    string
	SCPProgram    string
	Language      string
	AddressIndex  int
	// AddressIndexSet is true when --address-index was given explicitly
	AddressIndexSet bool
}

// Server is everything the commands ask of the Geofront server
type Server interface {
	auth.Server
	remote.Lister
	Identity(ctx context.Context, token string) (*client.Identity, error)
	MasterKey(ctx context.Context, token string) (string, error)
	ListKeys(ctx context.Context, token string) (map[string]string, error)
	RegisterKey(ctx context.Context, token, line string) error
	DeleteKey(ctx context.Context, token, fingerprint string) error
	Revoke(ctx context.Context, token string) error
	DialTunnel(ctx context.Context, token, alias string) (*websocket.Conn, error)
}

// Launcher runs ssh or scp against a target
type Launcher interface {
	Run(ctx context.Context, kind transport.Kind, t *remote.Target, opts transport.Options) (int, error)
}

// App carries the state shared by all commands of one invocation
type App struct {
	cfg      *Config
	store    *config.Store
	settings config.Settings
	logger   *log.Logger
	audit    *security.SecurityLogger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	homeDir       string
	allowInsecure bool

	// Collaborators; replaced in tests
	newServer func(ep config.Endpoint) Server
	launcher  Launcher
	lookPath  func(kind transport.Kind, override string) (string, error)
	picker    remote.Picker
	prompter  Prompter
	browser   auth.Browser
	confirmer auth.Confirmer
	clock     auth.Clock

	// exitCode is the status of a launched transport
	exitCode int
}

// NewApp creates an App wired to the real keyring, network and terminal
func NewApp(in io.Reader, out, errOut io.Writer) *App {
	home, _ := os.UserHomeDir()
	a := &App{
		cfg:           &Config{},
		store:         config.NewStore("", nil),
		logger:        getLogger(false),
		in:            in,
		out:           out,
		errOut:        errOut,
		homeDir:       home,
		allowInsecure: config.AllowInsecureFromEnv(),
		lookPath:      transport.LookPath,
		clock:         auth.WallClock(),
	}
	a.newServer = a.httpServer
	a.picker = huhPicker{}
	a.prompter = newTerminalPrompter(in, out)
	a.browser = auth.SystemBrowser()
	a.confirmer = auth.LineConfirmer{In: in, Out: out, Prompt: i18n.T("auth_press_return") + " "}
	return a
}

func getLogger(verbose bool) *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// setup runs before every command: logging, preferences and auditing
func (a *App) setup() error {
	a.logger = getLogger(a.cfg.Debug)

	st, err := a.store.LoadSettings()
	if err != nil {
		return gerrors.NewConfigurationError("load settings", err)
	}
	a.settings = st
	if a.cfg.Language == "" && st.Language != "" {
		i18n.InitI18n(st.Language)
	}

	if path, ok := config.AuditLogFromEnv(a.store.Dir()); ok && a.audit == nil {
		audit, err := security.OpenSecurityLogger(path, client.DefaultUserAgent())
		if err != nil {
			a.logger.Printf("audit log disabled: %v", err)
		} else {
			a.audit = audit
		}
	}
	if a.launcher == nil {
		a.launcher = transport.NewLauncher(a.logger, a.audit)
	}
	return nil
}

// Close releases the audit log
func (a *App) Close() error {
	return a.audit.Close()
}

// ExitCode turns the result of a command into the process exit status.
// A launched transport's status wins when the command itself succeeded.
func (a *App) ExitCode(err error) int {
	if err != nil {
		return gerrors.NewErrorHandler(a.logger, a.cfg.Debug).Handle(err)
	}
	return a.exitCode
}

func (a *App) httpServer(ep config.Endpoint) Server {
	return client.New(ep,
		client.WithTimeout(a.settings.RequestTimeoutOr(config.DefaultRequestTimeout)),
		client.WithLogger(a.logger),
	)
}

// endpoint loads the configured server URL
func (a *App) endpoint() (config.Endpoint, error) {
	ep, err := a.store.LoadEndpoint(a.allowInsecure)
	if errors.Is(err, config.ErrNoEndpoint) {
		return ep, gerrors.NewConfigurationError("load server URL", fmt.Errorf("no Geofront server configured; run `%s start` first", config.ClientName))
	}
	if err != nil {
		return ep, gerrors.NewConfigurationError("load server URL", err)
	}
	if ep.Insecure() {
		fmt.Fprintln(a.errOut, warningStyle.Render(i18n.T("insecure_warning", ep)))
		a.audit.LogInsecureEndpoint(ep.String())
	}
	return ep, nil
}

func (a *App) resolver(srv Server) *remote.Resolver {
	idx := 0
	if a.settings.AddressIndex != nil {
		idx = *a.settings.AddressIndex
	}
	if a.cfg.AddressIndexSet {
		idx = a.cfg.AddressIndex
	}
	return remote.NewResolver(srv, remote.WithAddressIndex(idx), remote.WithLogger(a.logger))
}

// authenticate runs a browser handshake and stores the new token
func (a *App) authenticate(ctx context.Context, ep config.Endpoint, srv Server) (string, error) {
	var browser auth.Browser
	if !a.cfg.NoOpenBrowser && a.settings.OpenBrowserOr(true) {
		browser = a.browser
	}

	au := auth.New(srv,
		auth.TokenSaverFunc(func(token string) error { return a.store.SaveToken(ep, token) }),
		auth.WithBrowser(browser),
		auth.WithConfirmer(a.confirmer),
		auth.WithClock(a.clock),
		auth.WithLogger(a.logger),
		auth.WithOutput(a.out),
		auth.WithAudit(a.audit, ep.String()),
		auth.WithPollInterval(a.settings.PollIntervalOr(config.DefaultPollInterval)),
		auth.WithTimeout(a.settings.HandshakeTimeoutOr(config.DefaultHandshakeTimeout)),
	)
	return au.Run(ctx)
}

// withToken calls fn with a valid token. A missing token starts a
// handshake; a token the server rejects is deleted, replaced by a fresh
// handshake and fn is retried once.
func (a *App) withToken(ctx context.Context, fn func(ctx context.Context, ep config.Endpoint, srv Server, token string) error) error {
	ep, err := a.endpoint()
	if err != nil {
		return err
	}
	srv := a.newServer(ep)

	token, err := a.store.Token(ep)
	if errors.Is(err, config.ErrNoToken) {
		a.logger.Printf("no token stored for %s", ep)
		token, err = a.authenticate(ctx, ep, srv)
	} else if err != nil {
		err = gerrors.NewConfigurationError("load token", err)
	}
	if err != nil {
		return err
	}

	err = fn(ctx, ep, srv, token)
	if !errors.Is(err, remote.ErrReauthenticate) && !gerrors.Is(err, gerrors.KindUnauthenticated) {
		return err
	}

	a.logger.Printf("server rejected the token: %v", err)
	if err := a.store.DeleteToken(ep); err != nil {
		return gerrors.NewConfigurationError("delete token", err)
	}
	a.audit.LogTokenDeleted(ep.String(), "rejected by server")
	fmt.Fprintln(a.errOut, warningStyle.Render(i18n.T("auth_reauthenticating")))

	token, err = a.authenticate(ctx, ep, srv)
	if err != nil {
		return err
	}
	return fn(ctx, ep, srv, token)
}

// publicKey returns the user's default public key, or nil if there is none
func (a *App) publicKey() (string, *keys.PublicKey) {
	path, key, err := keys.Discover(a.homeDir, a.logger)
	if err != nil {
		a.logger.Printf("no public key to offer: %v", err)
		return "", nil
	}
	return path, key
}

// runStart saves the server URL and signs in to it
func (a *App) runStart(ctx context.Context, rawURL string, force bool) error {
	if existing, err := a.store.LoadEndpoint(true); err == nil && !force {
		fmt.Fprintln(a.out, i18n.T("server_url_exists", existing))
		return nil
	}

	parse := func(s string) error {
		_, err := config.ParseEndpoint(s, a.allowInsecure)
		return err
	}
	if rawURL == "" {
		var err error
		rawURL, err = a.prompter.Input(ctx, i18n.T("server_url_prompt"), parse)
		if err != nil {
			return err
		}
	}

	ep, err := config.ParseEndpoint(rawURL, a.allowInsecure)
	if err != nil {
		return gerrors.NewConfigurationError("start", errors.New(i18n.T("server_url_invalid", rawURL, err)))
	}
	if ep.Insecure() {
		fmt.Fprintln(a.errOut, warningStyle.Render(i18n.T("insecure_warning", ep)))
		a.audit.LogInsecureEndpoint(ep.String())
	}
	if err := a.store.SaveEndpoint(ep); err != nil {
		return gerrors.NewConfigurationError("start", err)
	}
	fmt.Fprintln(a.out, successStyle.Render(i18n.T("server_url_saved", ep)))
	return a.runAuthenticate(ctx)
}

// runAuthenticate always performs a fresh handshake, then offers to
// register the local public key
func (a *App) runAuthenticate(ctx context.Context) error {
	ep, err := a.endpoint()
	if err != nil {
		return err
	}
	srv := a.newServer(ep)

	token, err := a.authenticate(ctx, ep, srv)
	if err != nil {
		return err
	}

	if id, err := srv.Identity(ctx, token); err == nil {
		fmt.Fprintln(a.out, successStyle.Render(i18n.T("auth_success", id.Identifier, id.TeamType)))
	} else {
		a.logger.Printf("identity lookup failed: %v", err)
		fmt.Fprintln(a.out, successStyle.Render(i18n.T("auth_success_plain")))
	}

	return a.offerKeyRegistration(ctx, ep, srv, token)
}

func (a *App) offerKeyRegistration(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
	path, key := a.publicKey()
	if key == nil {
		return nil
	}

	registered, err := srv.ListKeys(ctx, token)
	if err != nil {
		return err
	}
	if _, ok := registered[key.Fingerprint()]; ok {
		a.logger.Printf("%s is already registered", path)
		return nil
	}

	fmt.Fprintln(a.out, i18n.T("key_not_registered", path, ep.Host()))
	ok, err := a.prompter.Confirm(ctx, i18n.T("key_register_confirm"))
	if err != nil || !ok {
		return err
	}

	err = srv.RegisterKey(ctx, token, key.AuthorizedKey())
	if err != nil && !gerrors.Is(err, gerrors.KindDuplicateKey) {
		return err
	}
	fmt.Fprintln(a.out, successStyle.Render(i18n.T("key_registered", key.Fingerprint())))
	return nil
}

// runLogout revokes and forgets the stored token
func (a *App) runLogout(ctx context.Context) error {
	ep, err := a.endpoint()
	if err != nil {
		return err
	}

	token, err := a.store.Token(ep)
	if err == nil {
		if err := a.newServer(ep).Revoke(ctx, token); err != nil {
			a.logger.Printf("revoking the token failed: %v", err)
		}
	}
	if err := a.store.DeleteToken(ep); err != nil {
		return gerrors.NewConfigurationError("logout", err)
	}
	a.audit.LogTokenDeleted(ep.String(), "logout")
	fmt.Fprintln(a.out, i18n.T("logout_done", ep))
	return nil
}

// runRemotes prints the aliases, with their addresses when verbose
func (a *App) runRemotes(ctx context.Context, verbose bool) error {
	return a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		aliases, err := a.resolver(srv).ListAliases(ctx, token)
		if err != nil {
			return err
		}
		if len(aliases) == 0 {
			fmt.Fprintln(a.errOut, warningStyle.Render(i18n.T("no_remotes")))
			return nil
		}
		if !verbose {
			for _, al := range aliases {
				fmt.Fprintln(a.out, al.Name)
			}
			return nil
		}
		fmt.Fprint(a.out, renderRemoteTable(aliases))
		return nil
	})
}

// runRemote prints where an alias resolves to
func (a *App) runRemote(ctx context.Context, spec string) error {
	return a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		t, err := a.resolver(srv).Resolve(ctx, token, spec)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, t)
		return nil
	})
}

// runAuthorize asks the server to authorize access without connecting
func (a *App) runAuthorize(ctx context.Context, spec string) error {
	_, key := a.publicKey()
	return a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		t, err := a.resolver(srv).ResolveAuthorized(ctx, token, spec, authorizedLine(key))
		if err != nil {
			return err
		}
		a.audit.LogRemoteAuthorized(t.Alias, t.Address.User, t.Address.Host, t.Certificate != "")

		until := "-"
		if !t.ExpiresAt.IsZero() {
			until = t.ExpiresAt.Local().Format(expiryLayout)
		}
		fmt.Fprintln(a.out, successStyle.Render(i18n.T("remote_authorized", t, until)))
		return nil
	})
}

func authorizedLine(key *keys.PublicKey) string {
	if key == nil {
		return ""
	}
	return key.AuthorizedKey()
}

// sshRequest is what the ssh and go commands hand to connect
type sshRequest struct {
	Spec          string
	Identity      string
	Options       []string
	DynamicPort   string
	Tunnel        bool
	RemoteCommand []string
}

// runSSH authorizes spec and runs ssh against it
func (a *App) runSSH(ctx context.Context, req sshRequest) error {
	program, err := a.lookPath(transport.SSH, a.sshProgram())
	if err != nil {
		return err
	}

	pubPath, key := a.publicKey()
	var (
		target *remote.Target
		dial   tunnel.DialFunc
	)
	err = a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		var err error
		target, err = a.resolver(srv).ResolveAuthorized(ctx, token, req.Spec, authorizedLine(key))
		if err == nil && req.Tunnel {
			dial = tunnelDialer(srv, token, target.Alias)
		}
		return err
	})
	if err != nil {
		return err
	}
	a.audit.LogRemoteAuthorized(target.Alias, target.Address.User, target.Address.Host, target.Certificate != "")

	opts := transport.Options{
		Program:       program,
		Identity:      a.identityFor(req.Identity, target, pubPath),
		DynamicPort:   req.DynamicPort,
		Extra:         req.Options,
		RemoteCommand: req.RemoteCommand,
	}
	a.logger.Printf("connecting to %s", target)
	a.exitCode, err = a.launch(ctx, transport.SSH, target, opts, dial)
	return err
}

func tunnelDialer(srv Server, token, alias string) tunnel.DialFunc {
	return func(ctx context.Context) (*websocket.Conn, error) {
		return srv.DialTunnel(ctx, token, alias)
	}
}

// launch runs the transport against target. With a dialer the transport
// connects to a local tunnel instead, and known_hosts is still checked
// under the remote's own host name.
func (a *App) launch(ctx context.Context, kind transport.Kind, target *remote.Target, opts transport.Options, dial tunnel.DialFunc) (int, error) {
	if dial == nil {
		return a.launcher.Run(ctx, kind, target, opts)
	}

	l, err := tunnel.Listen(a.logger)
	if err != nil {
		return -1, gerrors.NewTransportLaunchError(kind.String(), err)
	}
	defer l.Close()

	local := *target
	local.Jumps = nil
	local.Address = client.Address{User: target.Address.User, Host: l.Host(), Port: l.Port()}
	opts.Extra = append([]string{"HostKeyAlias=" + target.Address.Host}, opts.Extra...)
	fmt.Fprintln(a.errOut, infoStyle.Render(i18n.T("tunnel_open", target.Alias, l.Port())))

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- l.Serve(tctx, dial) }()

	code, err := a.launcher.Run(ctx, kind, &local, opts)
	cancel()
	terr := <-errc
	if err == nil && terr != nil && !errors.Is(terr, context.Canceled) {
		a.logger.Printf("tunnel to %s failed: %v", target.Alias, terr)
		return code, terr
	}
	return code, err
}

// copyRequest is what the scp command hands to runSCP
type copyRequest struct {
	Source      string
	Destination string
	Recursive   bool
	Identity    string
	Options     []string
	SCPProgram  string
	Tunnel      bool
}

// runSCP authorizes the remote side of a copy and runs scp
func (a *App) runSCP(ctx context.Context, req copyRequest) error {
	sp, paths, err := remote.ParseCopyArgs(req.Source, req.Destination)
	if err != nil {
		return err
	}

	override := req.SCPProgram
	if override == "" {
		override = a.settings.SCP
	}
	program, err := a.lookPath(transport.SCP, override)
	if err != nil {
		return err
	}

	pubPath, key := a.publicKey()
	var (
		target *remote.Target
		dial   tunnel.DialFunc
	)
	err = a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		var err error
		target, err = a.resolver(srv).ResolveAuthorized(ctx, token, sp.String(), authorizedLine(key))
		if err == nil && req.Tunnel {
			dial = tunnelDialer(srv, token, target.Alias)
		}
		return err
	})
	if err != nil {
		return err
	}
	target.Copy = &paths
	a.audit.LogRemoteAuthorized(target.Alias, target.Address.User, target.Address.Host, target.Certificate != "")

	opts := transport.Options{
		Program:    program,
		SSHProgram: a.sshProgram(),
		Identity:   a.identityFor(req.Identity, target, pubPath),
		Recursive:  req.Recursive,
		Extra:      req.Options,
	}
	a.exitCode, err = a.launch(ctx, transport.SCP, target, opts, dial)
	return err
}

// runGo lets the user pick an alias and connects to it
func (a *App) runGo(ctx context.Context, req sshRequest) error {
	var aliases []remote.Alias
	err := a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		var err error
		aliases, err = a.resolver(srv).ListAliases(ctx, token)
		return err
	})
	if err != nil {
		return err
	}

	name, err := remote.Pick(ctx, a.picker, aliases)
	if err != nil {
		return err
	}
	req.Spec = name
	return a.runSSH(ctx, req)
}

// runColonize appends the server's master key to ~/.ssh/authorized_keys on
// a remote, logging in with the user's own credentials
func (a *App) runColonize(ctx context.Context, spec, identity string) error {
	program, err := a.lookPath(transport.SSH, a.sshProgram())
	if err != nil {
		return err
	}

	var (
		target *remote.Target
		master string
	)
	err = a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		line, err := srv.MasterKey(ctx, token)
		if err != nil {
			return err
		}
		key, err := keys.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return gerrors.NewProtocolError("get master key", "%v", err)
		}
		// the comment is free text and must not reach the remote shell
		key.Comment = ""
		master = key.AuthorizedKey()

		target, err = a.resolver(srv).Resolve(ctx, token, spec)
		return err
	})
	if err != nil {
		return err
	}

	opts := transport.Options{
		Program:       program,
		Identity:      identity,
		RemoteCommand: []string{colonizeCommand(master)},
	}
	a.logger.Printf("installing the master key on %s", target)
	a.exitCode, err = a.launcher.Run(ctx, transport.SSH, target, opts)
	return err
}

// colonizeCommand is the remote shell command that authorizes line
func colonizeCommand(line string) string {
	return "umask 077; mkdir -p ~/.ssh && echo '" + line + "' >> ~/.ssh/authorized_keys"
}

// runKeys lists the public keys registered to the account
func (a *App) runKeys(ctx context.Context, verbose bool) error {
	return a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		registered, err := srv.ListKeys(ctx, token)
		if err != nil {
			return err
		}
		fingerprints := make([]string, 0, len(registered))
		for fp := range registered {
			fingerprints = append(fingerprints, fp)
		}
		sort.Strings(fingerprints)
		for _, fp := range fingerprints {
			if verbose {
				fmt.Fprintln(a.out, registered[fp])
			} else {
				fmt.Fprintln(a.out, fp)
			}
		}
		return nil
	})
}

// runMasterKey prints the server's master key or its fingerprint
func (a *App) runMasterKey(ctx context.Context, verbose bool) error {
	return a.withToken(ctx, func(ctx context.Context, ep config.Endpoint, srv Server, token string) error {
		line, err := srv.MasterKey(ctx, token)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintln(a.out, line)
			return nil
		}
		key, err := keys.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return gerrors.NewProtocolError("get master key", "%v", err)
		}
		fmt.Fprintln(a.out, key.Fingerprint())
		return nil
	})
}

// runVersion prints build and protocol information
func (a *App) runVersion(short bool) error {
	if short {
		fmt.Fprintln(a.out, config.Version)
		return nil
	}
	fmt.Fprintf(a.out, "%s %s\n", titleStyle.Render(config.ClientName), config.Version)
	if config.GitCommit != "" {
		fmt.Fprintf(a.out, "Commit: %s\n", config.GitCommit)
	}
	if config.BuildTime != "" {
		fmt.Fprintf(a.out, "Built: %s\n", config.BuildTime)
	}
	fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(a.out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(a.out, "Server protocol: %s to %s\n", config.MinServerVersion, config.MaxServerVersion)
	return nil
}

func (a *App) sshProgram() string {
	if a.cfg.SSHProgram != "" {
		return a.cfg.SSHProgram
	}
	return a.settings.SSH
}

// identityFor picks the private key for ssh -i. An issued certificate only
// works together with the key it was signed for.
func (a *App) identityFor(flag string, t *remote.Target, pubPath string) string {
	if flag != "" || t.Certificate == "" || pubPath == "" {
		return flag
	}
	return keys.IdentityFor(pubPath)
}

// renderRemoteTable lays out aliases and their addresses in two columns
func renderRemoteTable(aliases []remote.Alias) string {
	width := 0
	for _, al := range aliases {
		if len(al.Name) > width {
			width = len(al.Name)
		}
	}
	nameCol := aliasStyle.Width(width + columnGap)

	var b strings.Builder
	for _, al := range aliases {
		addrs := make([]string, len(al.Addresses))
		for i, addr := range al.Addresses {
			addrs[i] = describeAddress(addr)
		}
		b.WriteString(nameCol.Render(al.Name))
		b.WriteString(strings.Join(addrs, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func describeAddress(addr client.Address) string {
	if len(addr.Jumps) == 0 {
		return addr.String()
	}
	jumps := make([]string, len(addr.Jumps))
	for i, j := range addr.Jumps {
		jumps[i] = describeAddress(j)
	}
	return fmt.Sprintf("%s (via %s)", addr.String(), strings.Join(jumps, ", "))
}
