package mocknet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
)

// ErrClosed is returned by endpoints of a closed network.
var ErrClosed = errors.New("mocknet: network closed")

// Net is an in-memory network between a prover and a verifier.
type Net struct {
	mu     sync.Mutex
	q      map[queueKey]chan []byte
	closed chan struct{}
	once   sync.Once
}

// New returns an empty network.
func New() *Net {
	return &Net{q: make(map[queueKey]chan []byte), closed: make(chan struct{})}
}

type queueKey struct {
	from ffs.RoleID
	to   ffs.RoleID
	seq  uint64
}

func (n *Net) slot(key queueKey) chan []byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := n.q[key]
	if ch == nil {
		ch = make(chan []byte, 1)
		n.q[key] = ch
	}
	return ch
}

func (n *Net) deliver(ctx context.Context, key queueKey, payload []byte) error {
	ch := n.slot(key)
	msg := append([]byte(nil), payload...)
	select {
	case ch <- msg:
		return nil
	case <-n.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Net) await(ctx context.Context, key queueKey) ([]byte, error) {
	ch := n.slot(key)
	select {
	case msg := <-ch:
		n.mu.Lock()
		delete(n.q, key)
		n.mu.Unlock()
		return msg, nil
	case <-n.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close unblocks every pending Send and Receive with ErrClosed.
func (n *Net) Close() {
	n.once.Do(func() { close(n.closed) })
}

// Endpoint is one party's view of the network.
type Endpoint struct {
	net  *Net
	self ffs.RoleID
	peer ffs.RoleID

	sendMu  sync.Mutex
	recvMu  sync.Mutex
	sendSeq uint64
	recvSeq uint64
}

// Endpoint returns the endpoint for role. Call it once per role.
func (n *Net) Endpoint(role ffs.Role) *Endpoint {
	return &Endpoint{net: n, self: role.ID(), peer: role.Peer()}
}

func (e *Endpoint) check(other ffs.RoleID) error {
	if other == e.self {
		return errors.New("mocknet: self addressed message")
	}
	if other != e.peer {
		return fmt.Errorf("mocknet: unknown peer %d", other)
	}
	return nil
}

// Send delivers msg to the peer in send order.
func (e *Endpoint) Send(ctx context.Context, to ffs.RoleID, msg []byte) error {
	if err := e.check(to); err != nil {
		return err
	}
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	if err := e.net.deliver(ctx, queueKey{from: e.self, to: to, seq: e.sendSeq}, msg); err != nil {
		return err
	}
	e.sendSeq++
	return nil
}

// Receive returns the next message from the peer.
func (e *Endpoint) Receive(ctx context.Context, from ffs.RoleID) ([]byte, error) {
	if err := e.check(from); err != nil {
		return nil, err
	}
	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	msg, err := e.net.await(ctx, queueKey{from: from, to: e.self, seq: e.recvSeq})
	if err != nil {
		return nil, err
	}
	e.recvSeq++
	return msg, nil
}

var _ ffs.Transport = (*Endpoint)(nil)
