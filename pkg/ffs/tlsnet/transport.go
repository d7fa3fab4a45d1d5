package tlsnet

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
)

// MaxFrameSize bounds a single incoming message.
const MaxFrameSize = 1 << 20

const (
	defaultConnectTimeout = 10 * time.Second
	redialInterval        = 200 * time.Millisecond
)

var (
	// ErrClosed is returned once the transport has been closed.
	ErrClosed = errors.New("tlsnet: transport closed")

	// ErrPeerIdentity indicates a peer whose role or certificate does not
	// match the configuration.
	ErrPeerIdentity = errors.New("tlsnet: unexpected peer identity")
)

// Config configures one side of the connection. Names and Addresses are
// indexed by role ID: the prover's entry first, then the verifier's.
type Config struct {
	Role        ffs.Role
	Names       []string
	Addresses   []string
	Certificate tls.Certificate
	RootCAs     *x509.CertPool

	// ConnectTimeout bounds connection setup. Defaults to 10s.
	ConnectTimeout time.Duration

	Logger logging.Logger
}

func (c Config) validate() error {
	if c.RootCAs == nil {
		return errors.New("tlsnet: root CA pool required")
	}
	if !c.Role.Valid() {
		return fmt.Errorf("tlsnet: invalid role %d", c.Role)
	}
	if len(c.Names) != 2 || len(c.Addresses) != 2 {
		return fmt.Errorf("tlsnet: need exactly two names and addresses, got %d and %d", len(c.Names), len(c.Addresses))
	}
	for i, name := range c.Names {
		if name == "" {
			return fmt.Errorf("tlsnet: empty name for role %d", i)
		}
	}
	if c.Addresses[ffs.RoleVerifier.ID()] == "" {
		return errors.New("tlsnet: verifier address required")
	}
	return nil
}

// Transport implements ffs.Transport over a single mTLS connection.
type Transport struct {
	self   ffs.RoleID
	peerID ffs.RoleID
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	peer      *peerConn
	closeOnce sync.Once
}

type peerConn struct {
	conn net.Conn

	writeMu sync.Mutex
	recv    chan []byte

	errOnce       sync.Once
	err           error
	closeRecvOnce sync.Once
}

// New connects to the peer and returns a ready transport. The verifier waits
// for the prover to dial in; the prover keeps dialing until it succeeds, ctx
// is done or the connect timeout expires.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(nil)
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, timeout)
	defer cancelConnect()

	var (
		conn *tls.Conn
		err  error
	)
	if cfg.Role == ffs.RoleVerifier {
		conn, err = accept(connectCtx, cfg)
	} else {
		conn, err = dial(connectCtx, cfg)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, errors.New("tlsnet: timeout waiting for peer connection")
		}
		return nil, err
	}

	tctx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		self:   cfg.Role.ID(),
		peerID: cfg.Role.Peer(),
		logger: logger.With("component", "tlsnet", "role", cfg.Role.String()),
		ctx:    tctx,
		cancel: cancel,
	}
	t.peer = newPeerConn(tctx, conn)
	t.logger.Info(ctx, "peer connected", "peer", cfg.Names[t.peerID], "remote", conn.RemoteAddr().String())
	return t, nil
}

func accept(ctx context.Context, cfg Config) (*tls.Conn, error) {
	serverTLS := &tls.Config{
		Certificates: []tls.Certificate{cfg.Certificate},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    cfg.RootCAs,
		MinVersion:   tls.VersionTLS12,
	}
	ln, err := tls.Listen("tcp", cfg.Addresses[ffs.RoleVerifier.ID()], serverTLS)
	if err != nil {
		return nil, fmt.Errorf("tlsnet: listen: %w", err)
	}
	// Only one peer is expected; the listener goes away with this call.
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	peer := ffs.RoleProver
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("tlsnet: accept: %w", err)
		}
		conn, ok := raw.(*tls.Conn)
		if !ok {
			_ = raw.Close()
			continue
		}
		if dl, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(dl)
		}
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			continue
		}
		id, err := readPeerID(conn)
		if err != nil {
			_ = conn.Close()
			continue
		}
		_ = conn.SetDeadline(time.Time{})
		if id != uint32(peer.ID()) {
			return nil, closeWithContextErr(conn, fmt.Errorf("%w: role %d", ErrPeerIdentity, id))
		}
		if err := checkPeerName(conn, cfg.Names[peer.ID()]); err != nil {
			return nil, closeWithContextErr(conn, err)
		}
		return conn, nil
	}
}

func dial(ctx context.Context, cfg Config) (*tls.Conn, error) {
	peer := ffs.RoleVerifier
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cfg.Certificate},
		RootCAs:      cfg.RootCAs,
		ServerName:   cfg.Names[peer.ID()],
		MinVersion:   tls.VersionTLS12,
	}
	dialer := &tls.Dialer{Config: tlsCfg}
	for {
		raw, err := dialer.DialContext(ctx, "tcp", cfg.Addresses[peer.ID()])
		if err == nil {
			conn := raw.(*tls.Conn)
			if err := writePeerID(conn, uint32(cfg.Role.ID())); err == nil {
				return conn, nil
			}
			_ = conn.Close()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(redialInterval):
		}
	}
}

func checkPeerName(conn *tls.Conn, name string) error {
	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return fmt.Errorf("%w: no client certificate", ErrPeerIdentity)
	}
	if err := certs[0].VerifyHostname(name); err != nil {
		return fmt.Errorf("%w: %w", ErrPeerIdentity, err)
	}
	return nil
}

// Send writes msg to the peer. It returns once the frame has been handed to
// the connection, so closing the transport right after Send does not drop it.
func (t *Transport) Send(ctx context.Context, to ffs.RoleID, msg []byte) error {
	if to == t.self {
		return errors.New("tlsnet: send to self")
	}
	if to != t.peerID {
		return fmt.Errorf("tlsnet: unknown peer %d", to)
	}
	if len(msg) > MaxFrameSize {
		return fmt.Errorf("tlsnet: message of %d bytes exceeds frame limit", len(msg))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	if err := t.peer.write(ctx, msg); err != nil {
		if t.ctx.Err() != nil {
			return ErrClosed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("tlsnet: send: %w", err)
	}
	return nil
}

// Receive returns the next message from the peer.
func (t *Transport) Receive(ctx context.Context, from ffs.RoleID) ([]byte, error) {
	if from == t.self {
		return nil, errors.New("tlsnet: receive from self")
	}
	if from != t.peerID {
		return nil, fmt.Errorf("tlsnet: unknown peer %d", from)
	}
	if t.ctx.Err() != nil {
		return nil, ErrClosed
	}
	return t.peer.recvOne(ctx, t.ctx)
}

// Close terminates the transport and the underlying connection.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		t.peer.close()
	})
	return nil
}

var _ ffs.Transport = (*Transport)(nil)

func newPeerConn(ctx context.Context, conn net.Conn) *peerConn {
	pc := &peerConn{
		conn: conn,
		recv: make(chan []byte, 16),
	}
	go pc.reader(ctx)
	return pc
}

// write sends one frame. A done ctx aborts a blocked write by expiring the
// write deadline; the connection is unusable afterwards.
func (pc *peerConn) write(ctx context.Context, msg []byte) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = pc.conn.SetWriteDeadline(dl)
	}
	aborted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = pc.conn.SetWriteDeadline(time.Unix(1, 0))
		close(aborted)
	})

	err := writeFrame(pc.conn, msg)
	if !stop() {
		<-aborted
	}
	_ = pc.conn.SetWriteDeadline(time.Time{})
	if err != nil {
		pc.setErr(err)
		return err
	}
	return nil
}

func (pc *peerConn) reader(ctx context.Context) {
	for {
		msg, err := readFrame(pc.conn)
		if err != nil {
			pc.setErr(err)
			pc.closeRecv()
			return
		}
		select {
		case pc.recv <- msg:
		case <-ctx.Done():
			pc.setErr(ctx.Err())
			pc.closeRecv()
			return
		}
	}
}

func (pc *peerConn) recvOne(ctx, transportCtx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-transportCtx.Done():
		return nil, ErrClosed
	case msg, ok := <-pc.recv:
		if !ok {
			return nil, pc.errOr(io.EOF)
		}
		return msg, nil
	}
}

func (pc *peerConn) close() {
	pc.setErr(io.EOF)
}

func (pc *peerConn) setErr(err error) {
	pc.errOnce.Do(func() {
		if err == nil {
			err = io.EOF
		}
		pc.err = err
		_ = pc.conn.Close()
	})
}

func (pc *peerConn) closeRecv() {
	pc.closeRecvOnce.Do(func() {
		close(pc.recv)
	})
}

func (pc *peerConn) errOr(fallback error) error {
	if pc.err != nil {
		return pc.err
	}
	return fallback
}

func writeFrame(w io.Writer, payload []byte) error {
	size := len(payload)
	if uint64(size) > math.MaxUint32 {
		return fmt.Errorf("tlsnet: frame too large (%d bytes)", size)
	}
	frame := make([]byte, 4+size)
	binary.BigEndian.PutUint32(frame, uint32(size))
	copy(frame[4:], payload)
	_, err := w.Write(frame)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("tlsnet: incoming frame of %d bytes exceeds limit", n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writePeerID(w io.Writer, id uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], id)
	_, err := w.Write(buf[:])
	return err
}

func readPeerID(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func closeWithContextErr(c io.Closer, base error) error {
	if closeErr := c.Close(); closeErr != nil {
		return fmt.Errorf("%w; close error: %v", base, closeErr)
	}
	return base
}
