// Package ffs implements the two participants of the Feige–Fiat–Shamir
// zero-knowledge identification protocol.
//
// A Prover holds k secrets s[1..k], each invertible modulo a public modulus n,
// and publishes v[i] = s[i]^-2 mod n. In every round it commits to
// x = ±r² mod n, receives k challenge bits from the Verifier and answers with
// y = r·∏s[i] (over the set bits) mod n. The Verifier accepts when
// y²·∏v[i] equals x or -x modulo n.
//
// # Usage
//
//	params := ffs.Params{K: 16, L: 1024}
//	prover, err := ffs.NewProver(n, secrets, params)
//	verifier, err := ffs.NewVerifier(params)
//
//	_ = verifier.ReceivePublicKeys(prover.PublicKeys().Vector())
//	for round := 0; round < rounds; round++ {
//	    x, _ := prover.Commit()
//	    a, _ := verifier.Challenge(x)
//	    y, _ := prover.Respond(a)
//	    ok, _ := verifier.Verify(y)
//	}
//
// The package only computes protocol values. Delivering them between the
// parties is the caller's job; see the session, mocknet and tlsnet packages.
//
// # State
//
// Both participants track an explicit state and reject calls made in the
// wrong order with ErrOutOfOrder. In particular a commitment's randomness
// answers exactly one challenge: a second Respond without a new Commit fails.
//
// # Randomness
//
// Each instance owns its random source. By default it is crypto/rand;
// WithSeed installs a deterministic ChaCha20 stream keyed from the seed, for
// reproducible tests.
//
// # Security Considerations
//
//   - A cheating prover passes one round with probability 2^-k and t rounds
//     with probability 2^-(k·t).
//   - The commitment sign is drawn once per Prover by default. WithFreshSign
//     draws it per commit instead.
//   - Prover and Verifier are not safe for concurrent use.
package ffs
