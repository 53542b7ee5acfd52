// Package client is the typed HTTP client for the Geofront server protocol.
// It never retries and never touches persisted state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
	"github.com/derekg/geofront-cli/internal/keys"
)

const (
	mimeJSON = "application/json"
	mimeText = "text/plain"

	// maxBodySize bounds how much of a response is read
	maxBodySize = 1 << 20
)

// Client talks to one Geofront server
type Client struct {
	endpoint  config.Endpoint
	http      *http.Client
	userAgent string
	logger    *log.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. The *http.Client is copied so a
// client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithLogger sets the debug logger
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// DefaultUserAgent identifies this client and the Go runtime
func DefaultUserAgent() string {
	return fmt.Sprintf("%s/%s (Go/%s)", config.ClientName, config.Version, strings.TrimPrefix(runtime.Version(), "go"))
}

// New creates a client for endpoint
func New(endpoint config.Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint:  endpoint,
		http:      &http.Client{Timeout: config.DefaultRequestTimeout},
		userAgent: DefaultUserAgent(),
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the server this client talks to
func (c *Client) Endpoint() config.Endpoint {
	return c.endpoint
}

type request struct {
	op          string
	method      string
	path        string
	segments    []string
	token       string
	body        []byte
	contentType string
	accept      string
	scope       scope
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// do performs one request and turns every failure into a classified error
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	target := c.endpoint.Resolve(r.path, r.segments...)

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, gerrors.New(gerrors.KindUsage, r.op, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	accept := r.accept
	if accept == "" {
		accept = mimeJSON
	}
	req.Header.Set("Accept", accept)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	c.logger.Printf("%s %s", r.method, target)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", r.op, ctxErr)
		}
		return nil, gerrors.NewServerUnavailableError(r.op, unwrapURLError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, gerrors.NewServerUnavailableError(r.op, err)
	}
	ct := mediaType(resp.Header.Get("Content-Type"))
	c.logger.Printf("%s %s -> %d (%s, %s=%q)", r.method, target, resp.StatusCode, ct, VersionHeader, resp.Header.Get(VersionHeader))

	// A gateway in front of the server may answer 5xx on its behalf
	if resp.StatusCode >= 500 {
		return nil, gerrors.New(gerrors.KindServerUnavailable, r.op, c.apiError(resp.StatusCode, ct, data, target))
	}

	if _, err := CheckProtocolVersion(resp.Header.Get(VersionHeader)); err != nil {
		return nil, gerrors.New(gerrors.KindProtocol, r.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.apiError(resp.StatusCode, ct, data, target)
		return nil, gerrors.New(classify(apiErr, r.scope), r.op, apiErr)
	}

	return &response{status: resp.StatusCode, contentType: ct, body: data}, nil
}

func (c *Client) apiError(status int, ct string, data []byte, target string) *APIError {
	e := &APIError{StatusCode: status, Endpoint: target}
	if ct == mimeJSON {
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			e.Code = eb.Error
			e.Message = eb.Message
		}
	}
	if e.Message == "" && ct == mimeText {
		e.Message = strings.TrimSpace(string(data))
	}
	return e
}

// decodeJSON decodes a 2xx JSON payload into v
func decodeJSON(op string, resp *response, v interface{}) error {
	if resp.contentType != mimeJSON {
		return gerrors.NewProtocolError(op, "expected %s response, got %q", mimeJSON, resp.contentType)
	}
	if err := json.Unmarshal(resp.body, v); err != nil {
		return gerrors.NewProtocolError(op, "malformed response: %v", err)
	}
	return nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return mt
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if ue.Timeout() {
			return fmt.Errorf("request timed out: %w", ue.Err)
		}
		return ue.Err
	}
	return err
}

// StartHandshake begins a browser authentication
func (c *Client) StartHandshake(ctx context.Context) (*Handshake, error) {
	const op = "start handshake"
	resp, err := c.do(ctx, request{op: op, method: http.MethodPost, path: "handshake", scope: scopeHandshake})
	if err != nil {
		return nil, err
	}

	var hs Handshake
	if err := decodeJSON(op, resp, &hs); err != nil {
		return nil, err
	}
	if hs.ID == "" {
		return nil, gerrors.NewProtocolError(op, "response has no handshakeId")
	}
	u, err := url.Parse(hs.BrowserURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, gerrors.NewProtocolError(op, "response has no usable browserUrl: %q", hs.BrowserURL)
	}
	return &hs, nil
}

// PollHandshake asks for the state of handshake id
func (c *Client) PollHandshake(ctx context.Context, id string) (*PollResult, error) {
	const op = "poll handshake"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "handshake", segments: []string{id}, scope: scopeHandshake})
	if err != nil {
		return nil, err
	}

	var pr PollResult
	if err := decodeJSON(op, resp, &pr); err != nil {
		return nil, err
	}
	if !pr.Status.Valid() {
		return nil, gerrors.NewProtocolError(op, "unknown handshake status %q", pr.Status)
	}
	if pr.Status == StatusDone && pr.Token == "" {
		return nil, gerrors.NewProtocolError(op, "handshake is done but no token was sent")
	}
	return &pr, nil
}

// ListRemotes fetches every alias the token may access
func (c *Client) ListRemotes(ctx context.Context, token string) (map[string]Remote, error) {
	const op = "list remotes"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "remotes", token: token})
	if err != nil {
		return nil, err
	}

	var raw map[string]Addresses
	if err := decodeJSON(op, resp, &raw); err != nil {
		return nil, err
	}

	remotes := make(map[string]Remote, len(raw))
	for alias, addrs := range raw {
		if len(addrs) == 0 {
			return nil, gerrors.NewProtocolError(op, "remote %q has no addresses", alias)
		}
		for i := range addrs {
			if err := normalizeAddress(&addrs[i]); err != nil {
				return nil, gerrors.NewProtocolError(op, "remote %q: %v", alias, err)
			}
		}
		remotes[alias] = Remote{Alias: alias, Addresses: addrs}
	}
	return remotes, nil
}

// normalizeAddress fills the default port and rejects addresses without a host
func normalizeAddress(a *Address) error {
	if a.Host == "" {
		return fmt.Errorf("address without host")
	}
	if a.Port == 0 {
		a.Port = config.DefaultSSHPort
	}
	for i := range a.Jumps {
		if err := normalizeAddress(&a.Jumps[i]); err != nil {
			return fmt.Errorf("jump %d: %w", i, err)
		}
	}
	return nil
}

// RequestSignedKey asks the server to authorize access to alias. When
// publicKey is non-empty the server may answer with a short-lived
// certificate for it.
func (c *Client) RequestSignedKey(ctx context.Context, token, alias, publicKey string) (*Authorization, error) {
	const op = "authorize remote"
	r := request{
		op:       op,
		method:   http.MethodPost,
		path:     "remotes",
		segments: []string{alias, "authorize"},
		token:    token,
		scope:    scopeRemote,
	}
	if publicKey != "" {
		body, err := json.Marshal(publicKeyRequest{PublicKey: publicKey})
		if err != nil {
			return nil, gerrors.New(gerrors.KindUsage, op, err)
		}
		r.body = body
		r.contentType = mimeJSON
	}

	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}

	var ar authorizeResponse
	if err := decodeJSON(op, resp, &ar); err != nil {
		return nil, err
	}
	if !ar.Success {
		return nil, gerrors.NewProtocolError(op, "server did not authorize %s", alias)
	}

	auth := &Authorization{Certificate: strings.TrimSpace(ar.Certificate)}
	if auth.Certificate != "" {
		if _, err := keys.ParseCertificate([]byte(auth.Certificate)); err != nil {
			return nil, gerrors.NewProtocolError(op, "certificate for %q: %v", alias, err)
		}
	}
	if ar.Remote != nil {
		if err := normalizeAddress(ar.Remote); err != nil {
			return nil, gerrors.NewProtocolError(op, "remote %q: %v", alias, err)
		}
		auth.Remote = ar.Remote
	}
	if ar.ExpiresAt != nil {
		auth.ExpiresAt = *ar.ExpiresAt
	}
	return auth, nil
}

// Identity returns who the token belongs to
func (c *Client) Identity(ctx context.Context, token string) (*Identity, error) {
	const op = "get identity"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "identity", token: token})
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := decodeJSON(op, resp, &id); err != nil {
		return nil, err
	}
	if id.Identifier == "" {
		return nil, gerrors.NewProtocolError(op, "response has no identifier")
	}
	return &id, nil
}

// MasterKey returns the server's current master key as an authorized_keys line
func (c *Client) MasterKey(ctx context.Context, token string) (string, error) {
	const op = "get master key"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "masterkey", token: token, accept: mimeText})
	if err != nil {
		return "", err
	}
	if resp.contentType != mimeText {
		return "", gerrors.NewProtocolError(op, "expected %s response, got %q", mimeText, resp.contentType)
	}
	line := strings.TrimSpace(string(resp.body))
	if line == "" {
		return "", gerrors.NewProtocolError(op, "server sent an empty master key")
	}
	return line, nil
}

// ListKeys returns the registered public keys by fingerprint
func (c *Client) ListKeys(ctx context.Context, token string) (map[string]string, error) {
	const op = "list keys"
	resp, err := c.do(ctx, request{op: op, method: http.MethodGet, path: "keys", token: token})
	if err != nil {
		return nil, err
	}
	keys := map[string]string{}
	if err := decodeJSON(op, resp, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// RegisterKey adds an authorized_keys line to the account
func (c *Client) RegisterKey(ctx context.Context, token, line string) error {
	_, err := c.do(ctx, request{
		op:          "register key",
		method:      http.MethodPost,
		path:        "keys",
		token:       token,
		body:        []byte(strings.TrimSpace(line)),
		contentType: mimeText,
	})
	return err
}

// DeleteKey removes the key with the given fingerprint
func (c *Client) DeleteKey(ctx context.Context, token, fingerprint string) error {
	_, err := c.do(ctx, request{
		op:       "delete key",
		method:   http.MethodDelete,
		path:     "keys",
		segments: []string{fingerprint},
		token:    token,
	})
	return err
}

// Revoke invalidates token on the server
func (c *Client) Revoke(ctx context.Context, token string) error {
	_, err := c.do(ctx, request{op: "revoke token", method: http.MethodDelete, path: "token", token: token})
	return err
}
