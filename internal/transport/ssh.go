package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	sberr "seabattle/internal/errors"
	"seabattle/util"
)

// SSHUser is the user name the dialer presents.  The server accepts any.
const SSHUser = "seabattle"

const sshHandshakeTimeout = 10 * time.Second

// SSHListener accepts players as SSH "session" channels.  Clients are
// not authenticated; SSH is used for its encryption and because any
// stock ssh client can play:
//
//	ssh -p 2222 host
//
// Each SSH connection carries exactly one player.
type SSHListener struct {
	ln           net.Listener
	config       *ssh.ServerConfig
	hostKey      ssh.PublicKey
	writeTimeout time.Duration
	logger       *util.Logger

	conns     chan Channel
	done      chan struct{}
	closeOnce sync.Once
}

// SSHOptions configures ListenSSH.
type SSHOptions struct {
	// HostKeyPath is a PEM private key.  When empty an ed25519 key is
	// generated for the lifetime of the listener.
	HostKeyPath  string
	WriteTimeout time.Duration
	Logger       *util.Logger
}

// ListenSSH binds addr and starts handshaking in the background.
func ListenSSH(addr string, opts SSHOptions) (*SSHListener, error) {
	signer, err := loadHostKey(opts.HostKeyPath)
	if err != nil {
		return nil, err
	}
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, sberr.Wrap("listen", addr, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = util.NewLogger(0)
	}

	l := &SSHListener{
		ln:           ln,
		config:       cfg,
		hostKey:      signer.PublicKey(),
		writeTimeout: opts.WriteTimeout,
		logger:       logger,
		conns:        make(chan Channel),
		done:         make(chan struct{}),
	}
	go l.acceptLoop()
	return l, nil
}

// HostKey returns the public half of the listener's host key.
func (l *SSHListener) HostKey() ssh.PublicKey {
	return l.hostKey
}

func loadHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate host key: %w", err)
		}
		return ssh.NewSignerFromKey(priv)
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("parse host key %s: %w", path, err)
	}
	return signer, nil
}

func (l *SSHListener) acceptLoop() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.logger.Warn("ssh accept: %v", err)
				l.Close()
			}
			return
		}
		go l.handshake(nc)
	}
}

func (l *SSHListener) handshake(nc net.Conn) {
	remote := nc.RemoteAddr().String()

	nc.SetDeadline(time.Now().Add(sshHandshakeTimeout)) //nolint:errcheck
	sconn, chans, reqs, err := ssh.NewServerConn(nc, l.config)
	if err != nil {
		l.logger.Debug("ssh handshake with %s failed: %v", remote, err)
		nc.Close()
		return
	}
	nc.SetDeadline(time.Time{}) //nolint:errcheck
	go ssh.DiscardRequests(reqs)

	var claimed bool
	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "only session channels are supported") //nolint:errcheck
			continue
		}
		if claimed {
			newCh.Reject(ssh.Prohibited, "one player per connection") //nolint:errcheck
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			l.logger.Debug("ssh channel accept from %s: %v", remote, err)
			continue
		}
		claimed = true
		go serveSessionRequests(requests)

		stream := &sshStream{Channel: ch, conn: sconn}
		sc := newStreamChannel(stream, remote, l.writeTimeout)
		select {
		case l.conns <- sc:
		case <-l.done:
			sc.Close()
			return
		}
	}
}

// serveSessionRequests agrees to the requests an interactive client
// sends before it starts talking, and refuses the rest.
func serveSessionRequests(in <-chan *ssh.Request) {
	for req := range in {
		switch req.Type {
		case "shell", "pty-req", "env", "window-change":
			req.Reply(true, nil) //nolint:errcheck
		default:
			req.Reply(false, nil) //nolint:errcheck
		}
	}
}

// Accept returns the next player channel.
func (l *SSHListener) Accept(ctx context.Context) (Channel, error) {
	select {
	case ch := <-l.conns:
		return ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, sberr.Wrap("accept", l.ln.Addr().String(), net.ErrClosed)
	}
}

func (l *SSHListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.ln.Close()
	})
	return err
}

func (l *SSHListener) Addr() net.Addr { return l.ln.Addr() }
func (l *SSHListener) Name() string   { return "ssh" }

// sshStream closes the whole SSH connection along with its channel.
type sshStream struct {
	ssh.Channel
	conn ssh.Conn
}

func (s *sshStream) Close() error {
	s.Channel.Close()
	return s.conn.Close()
}

// ── Dialer ───────────────────────────────────────────────────────────

// SSHDialer opens a session channel on a seabattle SSH listener.
type SSHDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
	// HostKey pins the server key.  When nil any key is accepted.
	HostKey ssh.PublicKey
}

// Dial connects and requests a shell on a new session channel.
func (d *SSHDialer) Dial(ctx context.Context, address string) (Channel, error) {
	hkCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec
	if d.HostKey != nil {
		hkCallback = ssh.FixedHostKey(d.HostKey)
	}
	cfg := &ssh.ClientConfig{
		User:            SSHUser,
		HostKeyCallback: hkCallback,
		Timeout:         d.Timeout,
	}

	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, sberr.Wrap("dial", address, err)
	}

	sconn, chans, reqs, err := ssh.NewClientConn(tcpConn, address, cfg)
	if err != nil {
		tcpConn.Close()
		return nil, sberr.Wrap("handshake", address, err)
	}
	go ssh.DiscardRequests(reqs)
	go func() {
		for newCh := range chans {
			newCh.Reject(ssh.Prohibited, "no channels accepted") //nolint:errcheck
		}
	}()

	ch, chReqs, err := sconn.OpenChannel("session", nil)
	if err != nil {
		sconn.Close()
		return nil, sberr.Wrap("open", address, err)
	}
	go ssh.DiscardRequests(chReqs)

	if ok, err := ch.SendRequest("shell", true, nil); err != nil || !ok {
		ch.Close()
		sconn.Close()
		if err == nil {
			err = fmt.Errorf("shell request refused")
		}
		return nil, sberr.Wrap("shell", address, err)
	}

	stream := &sshStream{Channel: ch, conn: sconn}
	return newStreamChannel(stream, tcpConn.RemoteAddr().String(), d.WriteTimeout), nil
}
