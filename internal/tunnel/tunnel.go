// Package tunnel relays one local TCP connection over a WebSocket, so ssh
// can reach remotes that are only visible from the Geofront server.
package tunnel

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	bufSize      = 32 * 1024
	closeTimeout = time.Second
)

// DialFunc opens the WebSocket end of the tunnel
type DialFunc func(ctx context.Context) (*websocket.Conn, error)

// Listener is the local end ssh connects to. It accepts a single
// connection.
type Listener struct {
	ln     net.Listener
	logger *log.Logger
}

// Listen binds a free port on the loopback interface
func Listen(logger *log.Logger) (*Listener, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, logger: logger}, nil
}

// Host is the address ssh should connect to
func (l *Listener) Host() string {
	return "127.0.0.1"
}

// Port is the local port ssh should connect to
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Close stops accepting
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Serve waits for the local connection, dials the relay and copies in both
// directions until either side closes or ctx is done.
func (l *Listener) Serve(ctx context.Context, dial DialFunc) error {
	conn, err := l.accept(ctx)
	if err != nil {
		return err
	}
	l.logger.Printf("tunnel: local connection from %s", conn.RemoteAddr())

	ws, err := dial(ctx)
	if err != nil {
		conn.Close()
		return err
	}
	return Pipe(ctx, conn, ws)
}

func (l *Listener) accept(ctx context.Context) (net.Conn, error) {
	stop := context.AfterFunc(ctx, func() { l.ln.Close() })
	defer stop()

	conn, err := l.ln.Accept()
	l.ln.Close()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return conn, nil
}

// Pipe copies conn to ws as binary messages and binary messages from ws
// back to conn. When one direction ends both connections are closed and
// the other direction's error is dropped.
func Pipe(ctx context.Context, conn net.Conn, ws *websocket.Conn) error {
	var (
		closed atomic.Bool
		once   sync.Once
	)
	shutdown := func() {
		once.Do(func() {
			closed.Store(true)
			conn.Close()
			ws.Close()
		})
	}
	defer shutdown()

	g, gctx := errgroup.WithContext(ctx)
	go func() {
		<-gctx.Done()
		shutdown()
	}()

	// local -> relay
	g.Go(func() error {
		defer shutdown()
		buf := make([]byte, bufSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if werr := ws.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
					return dropAfterClose(&closed, werr)
				}
			}
			if errors.Is(err, io.EOF) {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
				return nil
			}
			if err != nil {
				return dropAfterClose(&closed, err)
			}
		}
	})

	// relay -> local
	g.Go(func() error {
		defer shutdown()
		for {
			typ, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return dropAfterClose(&closed, err)
			}
			if typ != websocket.BinaryMessage {
				continue
			}
			if _, err := conn.Write(data); err != nil {
				return dropAfterClose(&closed, err)
			}
		}
	})

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// dropAfterClose hides the errors a direction sees once the other one has
// torn the connections down
func dropAfterClose(closed *atomic.Bool, err error) error {
	if closed.Load() {
		return nil
	}
	return err
}
