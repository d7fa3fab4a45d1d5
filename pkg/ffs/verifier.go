package ffs

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/hsiuhsiu/ffs-go/internal/modarith"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
)

// Verifier checks a prover's answers using only public values.
//
// A Verifier binds to the first public-key vector it receives; later vectors
// are ignored for the rest of the session. It is not safe for concurrent use.
type Verifier struct {
	params    Params
	rand      io.Reader
	logger    logging.Logger
	expectedN *big.Int

	keys    PublicKeys
	gotKeys bool

	x         *big.Int
	challenge []bool
	state     VerifierState
	round     int
}

// NewVerifier creates a verifier issuing challenges of params.K bits.
// params.L is not used by the verifier.
func NewVerifier(params Params, opts ...Option) (*Verifier, error) {
	if err := params.validateK(); err != nil {
		return nil, err
	}
	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		params:    params,
		rand:      o.rand,
		logger:    o.logger.With("component", "ffs.verifier"),
		expectedN: o.expectedN,
	}, nil
}

// Params returns the security parameters.
func (v *Verifier) Params() Params { return v.params }

// State returns the current protocol state.
func (v *Verifier) State() VerifierState { return v.state }

// Round returns the number of challenges issued so far.
func (v *Verifier) Round() int { return v.round }

// KeysReceived reports whether a public-key vector has been bound.
func (v *Verifier) KeysReceived() bool { return v.gotKeys }

// PublicKeys returns a copy of the bound public keys. It is the zero value
// before the first ReceivePublicKeys.
func (v *Verifier) PublicKeys() PublicKeys {
	if !v.gotKeys {
		return PublicKeys{}
	}
	return v.keys.Clone()
}

// ReceivePublicKeys ingests the prover's vector: the modulus followed by k
// keys. Only the first successful call binds; afterwards the argument is
// ignored. Every call moves the verifier to keys-received, abandoning any
// pending challenge.
func (v *Verifier) ReceivePublicKeys(vec []*big.Int) error {
	ctx := context.Background()
	if v.gotKeys {
		if v.state == VerifierChallenged {
			v.logger.Warn(ctx, "pending challenge abandoned", "round", v.round)
		}
		v.logger.Debug(ctx, "public keys already bound, ignoring vector")
		v.state = VerifierKeysReceived
		return nil
	}

	keys, err := ParsePublicKeys(vec, v.params.K)
	if err != nil {
		return err
	}
	if v.expectedN != nil && keys.N.Cmp(v.expectedN) != 0 {
		return ErrModulusMismatch
	}
	v.keys = keys
	v.gotKeys = true
	v.state = VerifierKeysReceived
	v.logger.Debug(ctx, "public keys bound", "k", v.params.K, "modulus_bits", keys.N.BitLen())
	return nil
}

// Challenge records the prover's commitment x and returns k fresh random
// bits. It requires bound public keys; issuing a new challenge while one is
// pending abandons the old round.
func (v *Verifier) Challenge(x *big.Int) ([]bool, error) {
	switch v.state {
	case VerifierKeysReceived, VerifierChallenged, VerifierVerified:
	default:
		return nil, &StateError{Op: "Challenge", State: v.state}
	}
	if x == nil {
		return nil, fmt.Errorf("%w: commitment", ErrNilValue)
	}

	bits, err := modarith.RandBits(v.rand, v.params.K)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	v.x = new(big.Int).Set(x)
	v.challenge = bits
	v.state = VerifierChallenged
	v.round++
	v.logger.Debug(context.Background(), "challenge issued", "round", v.round)
	return append([]bool(nil), bits...), nil
}

// Verify checks the response y against the stored commitment and challenge:
// it computes res = y²·∏v[i] mod n over the set challenge bits and accepts
// when x equals res or -res mod n. Both signs are accepted because the
// prover's sign bit is never transmitted.
//
// A mismatch is a false result, not an error. Errors are reserved for
// misuse: a nil y or a call without a pending challenge.
func (v *Verifier) Verify(y *big.Int) (bool, error) {
	if v.state != VerifierChallenged {
		return false, &StateError{Op: "Verify", State: v.state}
	}
	if y == nil {
		return false, fmt.Errorf("%w: response", ErrNilValue)
	}

	n := v.keys.N
	res := modarith.SquareMod(y, n)
	for i, bit := range v.challenge {
		if bit {
			res = modarith.MulMod(res, v.keys.V[i], n)
		}
	}
	neg := modarith.NegMod(res, n)
	ok := v.x.Cmp(res) == 0 || v.x.Cmp(neg) == 0

	v.state = VerifierVerified
	v.logger.Debug(context.Background(), "response checked", "round", v.round, "accepted", ok)
	return ok, nil
}
