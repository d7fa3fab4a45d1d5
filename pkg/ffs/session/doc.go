// Package session drives complete FFS identification sessions over an
// ffs.Transport.
//
// The prover sends its public keys once. Then, for each round, it sends a
// commitment, receives the challenge, sends the response and receives the
// verifier's verdict. The verifier stops at the first rejected round.
//
//	// prover side
//	res, err := session.RunProver(ctx, transport, prover, session.Config{Rounds: 20})
//
//	// verifier side
//	res, err := session.RunVerifier(ctx, transport, verifier, session.Config{Rounds: 20})
//	if err == nil && res.Accepted {
//	    // the prover knows the secrets, except with probability res.SoundnessError
//	}
//
// Both sides must be configured with the same number of rounds. Every message
// carries the session id and the round number, and a peer that deviates from
// the expected sequence fails the session with ErrUnexpectedMessage.
package session
