package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	sberr "seabattle/internal/errors"
	"seabattle/internal/protocol"
)

// WSPath is the endpoint players upgrade on.
const WSPath = "/ws"

// StatsPath serves a metrics snapshot as JSON.
const StatsPath = "/stats"

// WSListener serves WebSocket players from an HTTP server.  Each
// successful upgrade on WSPath becomes one Channel.
type WSListener struct {
	ln           net.Listener
	srv          *http.Server
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	conns     chan Channel
	done      chan struct{}
	closeOnce sync.Once
}

// WSOptions configures ListenWS.
type WSOptions struct {
	WriteTimeout time.Duration
	// Stats, when set, is served on StatsPath.
	Stats func() string
}

// ListenWS binds addr and starts serving HTTP in the background.
func ListenWS(addr string, opts WSOptions) (*WSListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, sberr.Wrap("listen", addr, err)
	}

	l := &WSListener{
		ln:           ln,
		writeTimeout: opts.WriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(chan Channel),
		done:  make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(WSPath, l.handleUpgrade)
	if opts.Stats != nil {
		stats := opts.Stats
		mux.HandleFunc(StatsPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(stats())) //nolint:errcheck
		})
	}
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go l.srv.Serve(ln) //nolint:errcheck
	return l, nil
}

func (l *WSListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return
	}
	ch := newWSChannel(ws, l.writeTimeout)
	select {
	case l.conns <- ch:
	case <-l.done:
		ch.Close()
	}
}

// Accept returns the next upgraded connection.
func (l *WSListener) Accept(ctx context.Context) (Channel, error) {
	select {
	case ch := <-l.conns:
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, sberr.Wrap("accept", l.ln.Addr().String(), net.ErrClosed)
	}
}

// Close stops the HTTP server.  Channels already handed out stay open.
func (l *WSListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}

func (l *WSListener) Addr() net.Addr { return l.ln.Addr() }
func (l *WSListener) Name() string   { return "ws" }

// ── Channel ──────────────────────────────────────────────────────────

type wsChannel struct {
	ws           *websocket.Conn
	remote       string
	writeTimeout time.Duration

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newWSChannel(ws *websocket.Conn, writeTimeout time.Duration) *wsChannel {
	ws.SetReadLimit(protocol.MaxMessageSize)
	return &wsChannel{ws: ws, remote: ws.RemoteAddr().String(), writeTimeout: writeTimeout}
}

func (c *wsChannel) Recv() (protocol.Message, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, sberr.Wrap("read", c.remote, err)
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		return protocol.Decode(data)
	}
}

func (c *wsChannel) Send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)) //nolint:errcheck
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return sberr.Wrap("write", c.remote, err)
	}
	return nil
}

// Close sends a close frame on a best-effort basis and drops the
// connection.
func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.wmu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
		c.wmu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *wsChannel) RemoteAddr() string { return c.remote }

// ── Dialer ───────────────────────────────────────────────────────────

// WSDialer opens WebSocket channels to a server's WSPath.
type WSDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial connects to ws://address/ws.
func (d *WSDialer) Dial(ctx context.Context, address string) (Channel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.Timeout}
	ws, resp, err := dialer.DialContext(ctx, "ws://"+address+WSPath, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) {
			return nil, sberr.Wrap("handshake", address, err)
		}
		return nil, sberr.Wrap("dial", address, err)
	}
	return newWSChannel(ws, d.WriteTimeout), nil
}
