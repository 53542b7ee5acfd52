package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/derekg/geofront-cli/internal/config"
	gerrors "github.com/derekg/geofront-cli/internal/errors"
)

func mustParseEndpoint(t testing.TB, raw string, insecure bool) config.Endpoint {
	t.Helper()
	ep, err := config.ParseEndpoint(raw, insecure)
	require.NoError(t, err)
	return ep
}

// userCert returns a signed user certificate in authorized_keys format
func userCert(t *testing.T, validFor time.Duration) string {
	t.Helper()
	userPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, caPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(userPub)
	require.NoError(t, err)
	ca, err := ssh.NewSignerFromKey(caPriv)
	require.NoError(t, err)

	now := time.Now()
	cert := &ssh.Certificate{
		Key:         key,
		CertType:    ssh.UserCert,
		ValidAfter:  uint64(now.Add(-time.Minute).Unix()),
		ValidBefore: uint64(now.Add(validFor).Unix()),
	}
	require.NoError(t, cert.SignCert(rand.Reader, ca))
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(cert)))
}

// fakeServer routes requests by "METHOD path" and stamps the protocol version
type fakeServer struct {
	t        *testing.T
	version  string
	routes   map[string]http.HandlerFunc
	requests []*http.Request
	bodies   []string
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	fs := &fakeServer{t: t, version: "0.4.0", routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	ep := mustParseEndpoint(t, srv.URL+"/api", true)
	return fs, New(ep, WithHTTPClient(srv.Client()))
}

func (fs *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fs.requests = append(fs.requests, r)
	fs.bodies = append(fs.bodies, string(body))

	if fs.version != "" {
		w.Header().Set(VersionHeader, fs.version)
	}
	h, ok := fs.routes[r.Method+" "+r.URL.EscapedPath()]
	if !ok {
		fs.t.Logf("unrouted request %s %s", r.Method, r.URL.EscapedPath())
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not-found", "message": "no route"})
		return
	}
	h(w, r)
}

func (fs *fakeServer) last() *http.Request {
	require.NotEmpty(fs.t, fs.requests)
	return fs.requests[len(fs.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonHandler(status int, v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { writeJSON(w, status, v) }
}

func textHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func TestRequestHeaders(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/remotes"] = jsonHandler(200, map[string]interface{}{})

	_, err := c.ListRemotes(context.Background(), "tok-1")
	require.NoError(t, err)

	req := fs.last()
	assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.True(t, strings.HasPrefix(req.Header.Get("User-Agent"), "geofront-cli/"), req.Header.Get("User-Agent"))
	assert.Contains(t, req.Header.Get("User-Agent"), "(Go/")
}

func TestStartHandshake(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["POST /api/handshake"] = jsonHandler(202, map[string]string{
		"handshakeId": "hs-1",
		"browserUrl":  "https://geofront.example/login/hs-1",
	})

	hs, err := c.StartHandshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hs-1", hs.ID)
	assert.Equal(t, "https://geofront.example/login/hs-1", hs.BrowserURL)
	assert.Empty(t, fs.last().Header.Get("Authorization"), "handshake must not send a token")
}

func TestStartHandshakeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"missing id", jsonHandler(200, map[string]string{"browserUrl": "https://x.example/"})},
		{"bad url", jsonHandler(200, map[string]string{"handshakeId": "a", "browserUrl": "javascript:alert(1)"})},
		{"not json", textHandler(200, "hello")},
		{"broken json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"handshakeId": `)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.routes["POST /api/handshake"] = tt.handler

			_, err := c.StartHandshake(context.Background())
			require.Error(t, err)
			assert.Equal(t, gerrors.KindProtocol, gerrors.KindOf(err), "got %v", err)
		})
	}
}

func TestPollHandshake(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		want     *PollResult
		wantKind gerrors.Kind
	}{
		{
			name:    "pending",
			handler: jsonHandler(200, map[string]string{"status": "pending"}),
			want:    &PollResult{Status: StatusPending},
		},
		{
			name:    "done",
			handler: jsonHandler(200, map[string]string{"status": "done", "token": "abc"}),
			want:    &PollResult{Status: StatusDone, Token: "abc"},
		},
		{
			name:    "denied",
			handler: jsonHandler(200, map[string]string{"status": "denied"}),
			want:    &PollResult{Status: StatusDenied},
		},
		{
			name:     "done without token",
			handler:  jsonHandler(200, map[string]string{"status": "done"}),
			wantKind: gerrors.KindProtocol,
		},
		{
			name:     "unknown status",
			handler:  jsonHandler(200, map[string]string{"status": "maybe"}),
			wantKind: gerrors.KindProtocol,
		},
		{
			name:     "unfinished",
			handler:  jsonHandler(412, map[string]string{"error": "unfinished-authentication", "message": "not yet"}),
			wantKind: gerrors.KindHandshakeNotFinished,
		},
		{
			name:     "denied by code",
			handler:  jsonHandler(403, map[string]string{"error": "handshake-denied"}),
			wantKind: gerrors.KindHandshakeDenied,
		},
		{
			name:     "token not found",
			handler:  jsonHandler(404, map[string]string{"error": "token-not-found"}),
			wantKind: gerrors.KindHandshakeNotFound,
		},
		{
			name:     "gone",
			handler:  jsonHandler(410, map[string]string{"error": "handshake-not-found"}),
			wantKind: gerrors.KindHandshakeNotFound,
		},
		{
			name:     "server error",
			handler:  textHandler(503, "maintenance"),
			wantKind: gerrors.KindServerUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.routes["GET /api/handshake/hs-1"] = tt.handler

			got, err := c.PollHandshake(context.Background(), "hs-1")
			if tt.want != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, gerrors.KindOf(err), "got %v", err)
		})
	}
}

func TestListRemotes(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/remotes"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"web-1": [{"user": "ubuntu", "host": "10.0.0.1", "port": 22}],
			"db-2": {"user": "postgres", "host": "db.internal", "port": 2222,
			         "jumps": [{"user": "jump", "host": "bastion-a", "port": 22},
			                   {"user": "jump", "host": "bastion-b"}]},
			"multi": [{"user": "a", "host": "h1", "port": 22}, {"user": "b", "host": "h2", "port": 23}]
		}`)
	}

	remotes, err := c.ListRemotes(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, remotes, 3)

	assert.Equal(t, []Address{{User: "ubuntu", Host: "10.0.0.1", Port: 22}}, remotes["web-1"].Addresses)

	db := remotes["db-2"]
	require.Len(t, db.Addresses, 1)
	assert.Equal(t, "db-2", db.Alias)
	assert.Equal(t, 2222, db.Addresses[0].Port)
	require.Len(t, db.Addresses[0].Jumps, 2)
	assert.Equal(t, "bastion-a", db.Addresses[0].Jumps[0].Host)
	assert.Equal(t, 22, db.Addresses[0].Jumps[1].Port, "missing port defaults to 22")

	assert.Len(t, remotes["multi"].Addresses, 2)
}

func TestListRemotesErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		version  string
		wantKind gerrors.Kind
	}{
		{"unauthorized", jsonHandler(401, map[string]string{"error": "invalid-token"}), "0.4.0", gerrors.KindUnauthenticated},
		{"expired", jsonHandler(410, map[string]string{"error": "expired-token"}), "0.4.0", gerrors.KindUnauthenticated},
		{"forgotten token", jsonHandler(404, map[string]string{"error": "token-not-found"}), "0.4.0", gerrors.KindUnauthenticated},
		{"other 4xx", jsonHandler(418, map[string]string{"error": "teapot", "message": "short and stout"}), "0.4.0", gerrors.KindProtocol},
		{"5xx", jsonHandler(500, map[string]string{"error": "oops"}), "", gerrors.KindServerUnavailable},
		{"no version header", jsonHandler(200, map[string]interface{}{}), "", gerrors.KindProtocol},
		{"bad version header", jsonHandler(200, map[string]interface{}{}), "zero.four", gerrors.KindProtocol},
		{"too old", jsonHandler(200, map[string]interface{}{}), "0.1.9", gerrors.KindProtocol},
		{"too new", jsonHandler(200, map[string]interface{}{}), "0.5.0", gerrors.KindProtocol},
		{"version checked on errors too", jsonHandler(401, map[string]string{"error": "invalid-token"}), "", gerrors.KindProtocol},
		{"address without host", jsonHandler(200, map[string]interface{}{"x": []map[string]interface{}{{"user": "u"}}}), "0.4.0", gerrors.KindProtocol},
		{"alias without addresses", jsonHandler(200, map[string]interface{}{"x": []interface{}{}}), "0.4.0", gerrors.KindProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.version = tt.version
			fs.routes["GET /api/remotes"] = tt.handler

			_, err := c.ListRemotes(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, gerrors.KindOf(err), "got %v", err)
		})
	}
}

func TestOtherClientErrorCarriesMessage(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/remotes"] = jsonHandler(418, map[string]string{"error": "teapot", "message": "short and stout"})

	_, err := c.ListRemotes(context.Background(), "tok")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 418, apiErr.StatusCode)
	assert.Equal(t, "teapot", apiErr.Code)
	assert.Contains(t, err.Error(), "short and stout")
}

func TestServerUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ep := mustParseEndpoint(t, srv.URL, true)
	srv.Close()

	_, err := New(ep).ListRemotes(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, gerrors.KindServerUnavailable, gerrors.KindOf(err), "got %v", err)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(mustParseEndpoint(t, srv.URL, true), WithTimeout(50*time.Millisecond))
	_, err := c.ListRemotes(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, gerrors.KindServerUnavailable, gerrors.KindOf(err), "got %v", err)
}

func TestTimeoutLeavesSharedClientAlone(t *testing.T) {
	ep := mustParseEndpoint(t, "https://geofront.example/", false)

	shared := &http.Client{Timeout: time.Minute}
	New(ep, WithHTTPClient(shared), WithTimeout(time.Second))
	assert.Equal(t, time.Minute, shared.Timeout)

	c := New(ep, WithTimeout(time.Second), WithHTTPClient(shared))
	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Same(t, shared, c.http, "a later WithHTTPClient wins")

	c = New(ep, WithHTTPClient(shared), WithTimeout(time.Second))
	assert.Equal(t, time.Second, c.http.Timeout)
	assert.NotSame(t, shared, c.http)
}

func TestContextCancelled(t *testing.T) {
	_, c := newFakeServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PollHandshake(ctx, "hs-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestRequestSignedKey(t *testing.T) {
	fs, c := newFakeServer(t)
	expires := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	cert := userCert(t, 5*time.Minute)
	fs.routes["POST /api/remotes/web-1/authorize"] = jsonHandler(200, map[string]interface{}{
		"success":     true,
		"remote":      map[string]interface{}{"user": "ubuntu", "host": "10.0.0.9", "port": 2022},
		"certificate": cert + "\n",
		"expires_at":  expires.Format(time.RFC3339),
	})

	auth, err := c.RequestSignedKey(context.Background(), "tok", "web-1", "ssh-ed25519 AAAAC3 me@host")
	require.NoError(t, err)
	require.NotNil(t, auth.Remote)
	assert.Equal(t, "ubuntu@10.0.0.9:2022", auth.Remote.String())
	assert.Equal(t, cert, auth.Certificate)
	assert.True(t, expires.Equal(auth.ExpiresAt))

	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(fs.bodies[len(fs.bodies)-1]), &sent))
	assert.Equal(t, "ssh-ed25519 AAAAC3 me@host", sent["public_key"])
	assert.Equal(t, "application/json", fs.last().Header.Get("Content-Type"))
}

func TestRequestSignedKeyMalformedCertificate(t *testing.T) {
	for name, cert := range map[string]string{
		"truncated":  "ssh-ed25519-cert-v01@openssh.com AAAA",
		"plain key":  "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl",
		"not base64": "ssh-ed25519-cert-v01@openssh.com !!!",
	} {
		t.Run(name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.routes["POST /api/remotes/web-1/authorize"] = jsonHandler(200, map[string]interface{}{
				"success":     true,
				"certificate": cert,
			})

			auth, err := c.RequestSignedKey(context.Background(), "tok", "web-1", "ssh-ed25519 AAAAC3 me@host")
			require.Error(t, err)
			assert.Nil(t, auth)
			assert.Equal(t, gerrors.KindProtocol, gerrors.KindOf(err), "got %v", err)
		})
	}
}

func TestRequestSignedKeyLegacySuccess(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["POST /api/remotes/web-1/authorize"] = jsonHandler(200, map[string]interface{}{
		"success": "authorized",
		"remote":  map[string]interface{}{"user": "ubuntu", "host": "10.0.0.9", "port": 22},
	})

	auth, err := c.RequestSignedKey(context.Background(), "tok", "web-1", "")
	require.NoError(t, err)
	assert.Empty(t, auth.Certificate)
	assert.True(t, auth.ExpiresAt.IsZero())
	assert.Empty(t, fs.bodies[len(fs.bodies)-1], "no body without a public key")
}

func TestRequestSignedKeyErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind gerrors.Kind
	}{
		{"unknown alias", jsonHandler(404, map[string]string{"error": "not-found", "message": "no such remote"}), gerrors.KindUnknownAlias},
		{"connection failure", jsonHandler(500, map[string]string{"error": "connection-failure", "message": "remote is down"}), gerrors.KindServerUnavailable},
		{"unauthenticated", jsonHandler(401, map[string]string{"error": "invalid-token"}), gerrors.KindUnauthenticated},
		{"not authorized", jsonHandler(200, map[string]interface{}{"success": false}), gerrors.KindProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.routes["POST /api/remotes/web-1/authorize"] = tt.handler

			_, err := c.RequestSignedKey(context.Background(), "tok", "web-1", "")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, gerrors.KindOf(err), "got %v", err)
		})
	}
}

func TestConnectionFailureMessage(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["POST /api/remotes/web-1/authorize"] = jsonHandler(500, map[string]string{"error": "connection-failure", "message": "remote is down"})

	_, err := c.RequestSignedKey(context.Background(), "tok", "web-1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote is down")
}

func TestIdentityAndMasterKey(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/identity"] = jsonHandler(200, map[string]string{"team_type": "github", "identifier": "alice"})
	fs.routes["GET /api/masterkey"] = textHandler(200, "ssh-rsa AAAAB3Nza master\n")

	id, err := c.Identity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &Identity{TeamType: "github", Identifier: "alice"}, id)

	mk, err := c.MasterKey(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa AAAAB3Nza master", mk)
	assert.Equal(t, "text/plain", fs.last().Header.Get("Accept"))
}

func TestMasterKeyWrongContentType(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/masterkey"] = jsonHandler(200, map[string]string{"key": "x"})

	_, err := c.MasterKey(context.Background(), "tok")
	assert.Equal(t, gerrors.KindProtocol, gerrors.KindOf(err))
}

func TestKeys(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["GET /api/keys"] = jsonHandler(200, map[string]string{"aa:bb": "ssh-ed25519 AAAA one"})
	fs.routes["POST /api/keys"] = jsonHandler(201, map[string]string{"aa:cc": "ssh-ed25519 BBBB two"})
	fs.routes["DELETE /api/keys/aa:bb"] = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }

	keys, err := c.ListKeys(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"aa:bb": "ssh-ed25519 AAAA one"}, keys)

	require.NoError(t, c.RegisterKey(context.Background(), "tok", "ssh-ed25519 BBBB two\n"))
	assert.Equal(t, "ssh-ed25519 BBBB two", fs.bodies[len(fs.bodies)-1])
	assert.Equal(t, "text/plain", fs.last().Header.Get("Content-Type"))

	require.NoError(t, c.DeleteKey(context.Background(), "tok", "aa:bb"))
}

func TestRegisterDuplicateKey(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["POST /api/keys"] = jsonHandler(400, map[string]string{"error": "duplicate-key"})

	err := c.RegisterKey(context.Background(), "tok", "ssh-ed25519 AAAA")
	assert.Equal(t, gerrors.KindDuplicateKey, gerrors.KindOf(err))
}

func TestRevoke(t *testing.T) {
	fs, c := newFakeServer(t)
	fs.routes["DELETE /api/token"] = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) }

	require.NoError(t, c.Revoke(context.Background(), "tok"))
	assert.Equal(t, "Bearer tok", fs.last().Header.Get("Authorization"))
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "u@host:22", Address{User: "u", Host: "host", Port: 22}.String())
	assert.Equal(t, "u@[2001:db8::1]:2222", Address{User: "u", Host: "2001:db8::1", Port: 2222}.String())
	assert.Equal(t, "host:22", Address{Host: "host", Port: 22}.String())
}
