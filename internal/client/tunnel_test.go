package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/derekg/geofront-cli/internal/errors"
)

func TestTunnelURL(t *testing.T) {
	tests := []struct {
		raw      string
		insecure bool
		want     string
	}{
		{"https://geofront.example/", false, "wss://geofront.example/ws/tokens/tok/remotes/web-1/ssh/"},
		{"https://geofront.example/api", false, "wss://geofront.example/api/ws/tokens/tok/remotes/web-1/ssh/"},
		{"http://localhost:8080/", true, "ws://localhost:8080/ws/tokens/tok/remotes/web-1/ssh/"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := TunnelURL(mustParseEndpoint(t, tt.raw, tt.insecure), "tok", "web-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialTunnel(t *testing.T) {
	fs, c := newFakeServer(t)
	upgrader := websocket.Upgrader{}
	fs.routes["GET /api/ws/tokens/tok/remotes/web-1/ssh/"] = func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade: %v", err)
			return
		}
		defer ws.Close()
		typ, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		ws.WriteMessage(typ, append([]byte("echo:"), data...))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := c.DialTunnel(ctx, "tok", "web-1")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("SSH-2.0-test")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, "echo:SSH-2.0-test", string(data))
	assert.Contains(t, fs.last().Header.Get("User-Agent"), "geofront-cli/")
}

func TestDialTunnelErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind gerrors.Kind
	}{
		{"expired token", jsonHandler(401, map[string]string{"error": "expired-token"}), gerrors.KindUnauthenticated},
		{"unknown alias", jsonHandler(404, map[string]string{"error": "not-found"}), gerrors.KindUnknownAlias},
		{"server down", textHandler(502, "bad gateway"), gerrors.KindServerUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, c := newFakeServer(t)
			fs.routes["GET /api/ws/tokens/tok/remotes/web-1/ssh/"] = tt.handler

			conn, err := c.DialTunnel(context.Background(), "tok", "web-1")
			require.Error(t, err)
			assert.Nil(t, conn)
			assert.Equal(t, tt.wantKind, gerrors.KindOf(err), "got %v", err)
			assert.NotContains(t, err.Error(), "/tok/", "the token stays out of messages")
		})
	}
}
