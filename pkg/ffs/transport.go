package ffs

import "context"

// RoleID identifies a party on a Transport.
type RoleID uint32

// Role enumerates the two parties of an identification session.
type Role uint8

const (
	RoleProver Role = iota
	RoleVerifier
)

// ID returns the transport identifier of r.
func (r Role) ID() RoleID { return RoleID(r) }

// Valid reports whether r is one of the two defined roles.
func (r Role) Valid() bool { return r == RoleProver || r == RoleVerifier }

// Peer returns the transport identifier of the other party.
func (r Role) Peer() RoleID {
	if r == RoleProver {
		return RoleID(RoleVerifier)
	}
	return RoleID(RoleProver)
}

func (r Role) String() string {
	switch r {
	case RoleProver:
		return "prover"
	case RoleVerifier:
		return "verifier"
	default:
		return "unknown"
	}
}

// Transport carries protocol messages between the prover and the verifier.
// The core never uses it directly; the session package drives the protocol
// over it.
//
// Semantics: messages between a pair of roles are delivered reliably and in
// order. Send and Receive block until done or until ctx is cancelled.
type Transport interface {
	Send(ctx context.Context, to RoleID, msg []byte) error
	Receive(ctx context.Context, from RoleID) ([]byte, error)
}
