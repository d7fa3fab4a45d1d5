// Package wire encodes the FFS protocol messages exchanged between a prover
// and a verifier.
//
// Every message is a CBOR map (deterministic core encoding) with integer
// keys. Large integers travel as big-endian unsigned byte strings. Negative
// values are never produced by the protocol, so they are rejected.
//
//	msg := wire.Commitment(sessionID, round, x)
//	data, err := wire.Encode(msg)
//	...
//	env, err := wire.Decode(data)
//	x, err := env.Integer()
package wire
