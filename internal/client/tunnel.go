package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
)

// TunnelURL is the WebSocket address of the server's SSH relay for alias.
// The token is part of the path, so the result must not be logged.
func TunnelURL(ep config.Endpoint, token, alias string) (string, error) {
	raw := ep.Resolve("ws/tokens", token, "remotes", alias, "ssh")
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/"
	return u.String(), nil
}

// DialTunnel opens the server's SSH relay for alias. Binary messages on the
// returned connection carry the remote's SSH stream; the caller closes it.
func (c *Client) DialTunnel(ctx context.Context, token, alias string) (*websocket.Conn, error) {
	const op = "open tunnel"
	target, err := TunnelURL(c.endpoint, token, alias)
	if err != nil {
		return nil, gerrors.New(gerrors.KindConfiguration, op, err)
	}
	shown := c.endpoint.Resolve("ws/tokens", "***", "remotes", alias, "ssh")

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.http.Timeout,
		TLSClientConfig:  c.tlsConfig(),
	}
	header := http.Header{}
	header.Set("User-Agent", c.userAgent)

	c.logger.Printf("GET %s (websocket)", shown)
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		if resp == nil {
			return nil, gerrors.NewServerUnavailableError(op, err)
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		apiErr := c.apiError(resp.StatusCode, mediaType(resp.Header.Get("Content-Type")), data, shown)
		if resp.StatusCode >= 500 {
			return nil, gerrors.New(gerrors.KindServerUnavailable, op, apiErr)
		}
		return nil, gerrors.New(classify(apiErr, scopeRemote), op, apiErr)
	}

	// A relay in front of the server does not always stamp the version
	if v := resp.Header.Get(VersionHeader); strings.TrimSpace(v) != "" {
		if _, err := CheckProtocolVersion(v); err != nil {
			conn.Close()
			return nil, gerrors.New(gerrors.KindProtocol, op, err)
		}
	}
	c.logger.Printf("tunnel to %s open", alias)
	return conn, nil
}

// tlsConfig reuses the TLS settings of the HTTP client's transport
func (c *Client) tlsConfig() *tls.Config {
	if t, ok := c.http.Transport.(*http.Transport); ok && t.TLSClientConfig != nil {
		return t.TLSClientConfig.Clone()
	}
	return nil
}
