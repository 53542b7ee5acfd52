package tunnel

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayServer starts a WebSocket server running handle for each connection
// and returns a DialFunc for it
func relayServer(t *testing.T, handle func(ws *websocket.Conn)) DialFunc {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handle(ws)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return func(ctx context.Context) (*websocket.Conn, error) {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		return ws, err
	}
}

func echo(ws *websocket.Conn) {
	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if err := ws.WriteMessage(typ, data); err != nil {
			return
		}
	}
}

func serve(t *testing.T, ctx context.Context, dial DialFunc) (*Listener, <-chan error) {
	t.Helper()
	l, err := Listen(nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	errc := make(chan error, 1)
	go func() { errc <- l.Serve(ctx, dial) }()
	return l, errc
}

func wait(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func dialLocal(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(l.Host(), strconv.Itoa(l.Port())), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestListenLoopback(t *testing.T) {
	l, err := Listen(nil)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "127.0.0.1", l.Host())
	assert.Greater(t, l.Port(), 0)
}

func TestServeRoundTrip(t *testing.T) {
	l, errc := serve(t, context.Background(), relayServer(t, echo))
	conn := dialLocal(t, l)

	_, err := conn.Write([]byte("SSH-2.0-OpenSSH_9.6\r\n"))
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := io.ReadAtLeast(conn, buf, len("SSH-2.0-OpenSSH_9.6\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "SSH-2.0-OpenSSH_9.6\r\n", string(buf[:n]))

	require.NoError(t, conn.(*net.TCPConn).CloseWrite())
	assert.NoError(t, wait(t, errc))
}

func TestServeRelayCloses(t *testing.T) {
	dial := relayServer(t, func(ws *websocket.Conn) {
		ws.WriteMessage(websocket.BinaryMessage, []byte("banner"))
		ws.WriteMessage(websocket.TextMessage, []byte("ignored"))
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})
	l, errc := serve(t, context.Background(), dial)
	conn := dialLocal(t, l)

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "banner", string(data))
	assert.NoError(t, wait(t, errc))
}

func TestServeDialFailure(t *testing.T) {
	dialErr := errors.New("relay refused")
	l, errc := serve(t, context.Background(), func(ctx context.Context) (*websocket.Conn, error) {
		return nil, dialErr
	})
	conn := dialLocal(t, l)

	assert.ErrorIs(t, wait(t, errc), dialErr)
	_, err := conn.Read(make([]byte, 1))
	assert.Error(t, err, "the local side is closed")
}

func TestServeCancelledBeforeConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, errc := serve(t, ctx, relayServer(t, echo))
	cancel()

	assert.ErrorIs(t, wait(t, errc), context.Canceled)
}

func TestServeSingleConnection(t *testing.T) {
	l, errc := serve(t, context.Background(), relayServer(t, echo))
	conn := dialLocal(t, l)

	_, err := conn.Write([]byte("x"))
	require.NoError(t, err)
	_, err = io.ReadFull(conn, make([]byte, 1))
	require.NoError(t, err)

	_, err = net.DialTimeout("tcp", net.JoinHostPort(l.Host(), strconv.Itoa(l.Port())), time.Second)
	assert.Error(t, err, "the listener closes after the first connection")

	conn.Close()
	assert.NoError(t, wait(t, errc))
}
